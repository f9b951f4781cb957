// Package models contains domain models for memkeep.
package models

import (
	"database/sql"

	json "github.com/goccy/go-json"
)

// ObservationType classifies a recorded unit of work.
type ObservationType string

const (
	ObsTypeDecision  ObservationType = "decision"
	ObsTypeBugfix    ObservationType = "bugfix"
	ObsTypeFeature   ObservationType = "feature"
	ObsTypeRefactor  ObservationType = "refactor"
	ObsTypeDiscovery ObservationType = "discovery"
	ObsTypeChange    ObservationType = "change"
)

// ObservationTypes lists every valid observation type.
var ObservationTypes = []ObservationType{
	ObsTypeDecision, ObsTypeBugfix, ObsTypeFeature,
	ObsTypeRefactor, ObsTypeDiscovery, ObsTypeChange,
}

// ParseObservationType coerces raw type strings to a valid type.
// Unknown or missing values become "change" rather than failing.
func ParseObservationType(raw string) ObservationType {
	t := ObservationType(raw)
	for _, valid := range ObservationTypes {
		if t == valid {
			return t
		}
	}
	return ObsTypeChange
}

// Observation is a single recorded unit of work tied to a session.
// Project is denormalized from the owning session for cross-session queries.
type Observation struct {
	ID              int64           `db:"id" json:"id"`
	ClaudeSessionID string          `db:"claude_session_id" json:"claude_session_id"`
	Project         string          `db:"project" json:"project"`
	Type            ObservationType `db:"type" json:"type"`
	Title           sql.NullString  `db:"title" json:"title"`
	Subtitle        sql.NullString  `db:"subtitle" json:"subtitle,omitempty"`
	Narrative       sql.NullString  `db:"narrative" json:"narrative,omitempty"`
	Facts           JSONStringArray `db:"facts" json:"facts"`
	Concepts        JSONStringArray `db:"concepts" json:"concepts"`
	FilesRead       JSONStringArray `db:"files_read" json:"files_read"`
	FilesModified   JSONStringArray `db:"files_modified" json:"files_modified"`
	PromptNumber    sql.NullInt64   `db:"prompt_number" json:"prompt_number,omitempty"`
	DiscoveryTokens int64           `db:"discovery_tokens" json:"discovery_tokens"`
	Embedding       JSONFloatArray  `db:"embedding" json:"-"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
	CreatedAtEpoch  int64           `db:"created_at_epoch" json:"created_at_epoch"`

	// Rank is populated only by relevance-ordered FTS queries.
	Rank float64 `db:"-" json:"rank,omitempty"`
}

// PrimaryFile returns the file an observation is chiefly about:
// first modified path, else first read path, else empty.
func (o *Observation) PrimaryFile() string {
	if len(o.FilesModified) > 0 {
		return o.FilesModified[0]
	}
	if len(o.FilesRead) > 0 {
		return o.FilesRead[0]
	}
	return ""
}

// observationJSON flattens nullable columns for clean JSON output.
type observationJSON struct {
	ID              int64           `json:"id"`
	ClaudeSessionID string          `json:"claude_session_id"`
	Project         string          `json:"project"`
	Type            ObservationType `json:"type"`
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle,omitempty"`
	Narrative       string          `json:"narrative,omitempty"`
	Facts           JSONStringArray `json:"facts"`
	Concepts        JSONStringArray `json:"concepts"`
	FilesRead       JSONStringArray `json:"files_read"`
	FilesModified   JSONStringArray `json:"files_modified"`
	PromptNumber    int64           `json:"prompt_number,omitempty"`
	DiscoveryTokens int64           `json:"discovery_tokens"`
	CreatedAt       string          `json:"created_at"`
	CreatedAtEpoch  int64           `json:"created_at_epoch"`
	Rank            float64         `json:"rank,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting sql.Null* fields
// to plain values and omitting them when absent.
func (o *Observation) MarshalJSON() ([]byte, error) {
	j := observationJSON{
		ID:              o.ID,
		ClaudeSessionID: o.ClaudeSessionID,
		Project:         o.Project,
		Type:            o.Type,
		Facts:           o.Facts,
		Concepts:        o.Concepts,
		FilesRead:       o.FilesRead,
		FilesModified:   o.FilesModified,
		DiscoveryTokens: o.DiscoveryTokens,
		CreatedAt:       o.CreatedAt,
		CreatedAtEpoch:  o.CreatedAtEpoch,
		Rank:            o.Rank,
	}
	if o.Title.Valid {
		j.Title = o.Title.String
	}
	if o.Subtitle.Valid {
		j.Subtitle = o.Subtitle.String
	}
	if o.Narrative.Valid {
		j.Narrative = o.Narrative.String
	}
	if o.PromptNumber.Valid {
		j.PromptNumber = o.PromptNumber.Int64
	}
	return json.Marshal(j)
}

// ParsedObservation is the structured candidate an inference call produces
// before it is committed to the store.
type ParsedObservation struct {
	Type          ObservationType
	Title         string
	Subtitle      string
	Narrative     string
	Facts         []string
	Concepts      []string
	FilesRead     []string
	FilesModified []string
	Embedding     []float64
}
