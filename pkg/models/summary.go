package models

import (
	"database/sql"
	"time"

	json "github.com/goccy/go-json"
)

// SessionSummary is a structured debrief of a session, scoped to a project.
// A session may accumulate more than one if summarized multiple times.
type SessionSummary struct {
	ID              int64          `db:"id" json:"id"`
	ClaudeSessionID string         `db:"claude_session_id" json:"claude_session_id"`
	Project         string         `db:"project" json:"project"`
	Request         sql.NullString `db:"request" json:"request,omitempty"`
	Investigated    sql.NullString `db:"investigated" json:"investigated,omitempty"`
	Learned         sql.NullString `db:"learned" json:"learned,omitempty"`
	Completed       sql.NullString `db:"completed" json:"completed,omitempty"`
	NextSteps       sql.NullString `db:"next_steps" json:"next_steps,omitempty"`
	Notes           sql.NullString `db:"notes" json:"notes,omitempty"`
	PromptNumber    sql.NullInt64  `db:"prompt_number" json:"prompt_number,omitempty"`
	DiscoveryTokens int64          `db:"discovery_tokens" json:"discovery_tokens"`
	CreatedAt       string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch  int64          `db:"created_at_epoch" json:"created_at_epoch"`
}

// ParsedSummary is the structured form an inference call produces.
type ParsedSummary struct {
	Request      string
	Investigated string
	Learned      string
	Completed    string
	NextSteps    string
	Notes        string
}

// IsEmpty reports whether no debrief section carries content.
func (p *ParsedSummary) IsEmpty() bool {
	return p.Request == "" && p.Investigated == "" && p.Learned == "" &&
		p.Completed == "" && p.NextSteps == "" && p.Notes == ""
}

// NewSessionSummary builds a SessionSummary from parsed inference output.
func NewSessionSummary(claudeSessionID, project string, parsed *ParsedSummary, promptNumber int, discoveryTokens int64) *SessionSummary {
	now := time.Now()
	return &SessionSummary{
		ClaudeSessionID: claudeSessionID,
		Project:         project,
		Request:         sql.NullString{String: parsed.Request, Valid: parsed.Request != ""},
		Investigated:    sql.NullString{String: parsed.Investigated, Valid: parsed.Investigated != ""},
		Learned:         sql.NullString{String: parsed.Learned, Valid: parsed.Learned != ""},
		Completed:       sql.NullString{String: parsed.Completed, Valid: parsed.Completed != ""},
		NextSteps:       sql.NullString{String: parsed.NextSteps, Valid: parsed.NextSteps != ""},
		Notes:           sql.NullString{String: parsed.Notes, Valid: parsed.Notes != ""},
		PromptNumber:    sql.NullInt64{Int64: int64(promptNumber), Valid: promptNumber > 0},
		DiscoveryTokens: discoveryTokens,
		CreatedAt:       now.Format(time.RFC3339),
		CreatedAtEpoch:  now.UnixMilli(),
	}
}

// summaryJSON flattens nullable columns for clean JSON output.
type summaryJSON struct {
	ID              int64  `json:"id"`
	ClaudeSessionID string `json:"claude_session_id"`
	Project         string `json:"project"`
	Request         string `json:"request,omitempty"`
	Investigated    string `json:"investigated,omitempty"`
	Learned         string `json:"learned,omitempty"`
	Completed       string `json:"completed,omitempty"`
	NextSteps       string `json:"next_steps,omitempty"`
	Notes           string `json:"notes,omitempty"`
	PromptNumber    int64  `json:"prompt_number,omitempty"`
	DiscoveryTokens int64  `json:"discovery_tokens"`
	CreatedAt       string `json:"created_at"`
	CreatedAtEpoch  int64  `json:"created_at_epoch"`
}

// MarshalJSON implements json.Marshaler for SessionSummary.
func (s *SessionSummary) MarshalJSON() ([]byte, error) {
	j := summaryJSON{
		ID:              s.ID,
		ClaudeSessionID: s.ClaudeSessionID,
		Project:         s.Project,
		DiscoveryTokens: s.DiscoveryTokens,
		CreatedAt:       s.CreatedAt,
		CreatedAtEpoch:  s.CreatedAtEpoch,
	}
	if s.Request.Valid {
		j.Request = s.Request.String
	}
	if s.Investigated.Valid {
		j.Investigated = s.Investigated.String
	}
	if s.Learned.Valid {
		j.Learned = s.Learned.String
	}
	if s.Completed.Valid {
		j.Completed = s.Completed.String
	}
	if s.NextSteps.Valid {
		j.NextSteps = s.NextSteps.String
	}
	if s.Notes.Valid {
		j.Notes = s.Notes.String
	}
	if s.PromptNumber.Valid {
		j.PromptNumber = s.PromptNumber.Int64
	}
	return json.Marshal(j)
}
