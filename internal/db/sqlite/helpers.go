package sqlite

import (
	"database/sql"
	"strings"

	"github.com/memkeep/memkeep/pkg/models"
)

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullInt converts an int to sql.NullInt64.
func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i > 0}
}

// repeatPlaceholders generates n comma-prefixed placeholders for SQL IN
// clauses. repeatPlaceholders(2) returns ", ?, ?".
func repeatPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}

// int64Args converts []int64 to []interface{} for SQL queries.
func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// buildFTSQuery turns free text into an FTS5 match expression. Each
// token is quoted and given a prefix wildcard so partial words match.
// Returns empty when the text yields no tokens.
func buildFTSQuery(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		quoted = append(quoted, `"`+tok+`"*`)
	}
	return strings.Join(quoted, " OR ")
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface{ Scan(...interface{}) error }

// scanObservation scans one observation row.
func scanObservation(sc scanner) (*models.Observation, error) {
	var obs models.Observation
	if err := sc.Scan(
		&obs.ID, &obs.ClaudeSessionID, &obs.Project, &obs.Type,
		&obs.Title, &obs.Subtitle, &obs.Narrative,
		&obs.Facts, &obs.Concepts, &obs.FilesRead, &obs.FilesModified,
		&obs.PromptNumber, &obs.DiscoveryTokens, &obs.Embedding,
		&obs.CreatedAt, &obs.CreatedAtEpoch,
	); err != nil {
		return nil, err
	}
	return &obs, nil
}

// scanObservationRows scans multiple observations. Caller closes rows.
func scanObservationRows(rows *sql.Rows) ([]*models.Observation, error) {
	var observations []*models.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// scanSummary scans one summary row.
func scanSummary(sc scanner) (*models.SessionSummary, error) {
	var summary models.SessionSummary
	if err := sc.Scan(
		&summary.ID, &summary.ClaudeSessionID, &summary.Project,
		&summary.Request, &summary.Investigated, &summary.Learned, &summary.Completed,
		&summary.NextSteps, &summary.Notes, &summary.PromptNumber, &summary.DiscoveryTokens,
		&summary.CreatedAt, &summary.CreatedAtEpoch,
	); err != nil {
		return nil, err
	}
	return &summary, nil
}

// scanSummaryRows scans multiple summaries. Caller closes rows.
func scanSummaryRows(rows *sql.Rows) ([]*models.SessionSummary, error) {
	var summaries []*models.SessionSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// scanSession scans one session row.
func scanSession(sc scanner) (*models.Session, error) {
	var sess models.Session
	if err := sc.Scan(
		&sess.ID, &sess.ClaudeSessionID, &sess.Project, &sess.UserPrompt,
		&sess.PromptCounter, &sess.Status, &sess.StartedAt, &sess.StartedAtEpoch,
		&sess.CompletedAt, &sess.CompletedAtEpoch,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}
