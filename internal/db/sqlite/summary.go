package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memkeep/memkeep/pkg/models"
)

const summaryColumns = `id, claude_session_id, project, request, investigated, learned, completed,
	next_steps, notes, prompt_number, discovery_tokens, created_at, created_at_epoch`

// SummaryStore provides session-summary database operations.
type SummaryStore struct {
	store *Store
}

// NewSummaryStore creates a new summary store.
func NewSummaryStore(store *Store) *SummaryStore {
	return &SummaryStore{store: store}
}

// StoreSummary stores a session summary for an existing session.
// Returns models.ErrNotFound when the session is unknown. A session may
// accumulate several summaries; this always appends.
func (s *SummaryStore) StoreSummary(ctx context.Context, claudeSessionID, project string, summary *models.ParsedSummary, promptNumber int, discoveryTokens int64) (int64, error) {
	var sessionID int64
	const checkQuery = `SELECT id FROM sessions WHERE claude_session_id = ?`
	err := s.store.QueryRowContext(ctx, checkQuery, claudeSessionID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	now := time.Now()

	const query = `
		INSERT INTO session_summaries
		(claude_session_id, project, request, investigated, learned, completed,
		 next_steps, notes, prompt_number, discovery_tokens, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		claudeSessionID, project,
		nullString(summary.Request), nullString(summary.Investigated),
		nullString(summary.Learned), nullString(summary.Completed),
		nullString(summary.NextSteps), nullString(summary.Notes),
		nullInt(promptNumber), discoveryTokens,
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetRecentSummaries retrieves recent summaries for a project, newest
// first.
func (s *SummaryStore) GetRecentSummaries(ctx context.Context, project string, limit int) ([]*models.SessionSummary, error) {
	const query = `
		SELECT ` + summaryColumns + `
		FROM session_summaries
		WHERE project = ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSummaryRows(rows)
}

// GetSummariesSince retrieves summaries created at or after sinceEpoch,
// optionally narrowed by project.
func (s *SummaryStore) GetSummariesSince(ctx context.Context, project string, sinceEpoch int64, limit int) ([]*models.SessionSummary, error) {
	const query = `
		SELECT ` + summaryColumns + `
		FROM session_summaries
		WHERE (? = '' OR project = ?) AND created_at_epoch >= ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, project, project, sinceEpoch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSummaryRows(rows)
}

// SearchSummaries performs ranked full-text search over the debrief
// columns, optionally narrowed by project.
func (s *SummaryStore) SearchSummaries(ctx context.Context, query, project string, limit int) ([]*models.SessionSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	expr := buildFTSQuery(query)
	if expr == "" {
		return nil, nil
	}

	const ftsQuery = `
		SELECT ss.id, ss.claude_session_id, ss.project, ss.request, ss.investigated,
		       ss.learned, ss.completed, ss.next_steps, ss.notes,
		       ss.prompt_number, ss.discovery_tokens, ss.created_at, ss.created_at_epoch
		FROM session_summaries ss
		JOIN session_summaries_fts fts ON ss.id = fts.rowid
		WHERE session_summaries_fts MATCH ?
		  AND (? = '' OR ss.project = ?)
		ORDER BY fts.rank
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, ftsQuery, expr, project, project, limit)
	if err != nil {
		return s.searchSummariesLike(ctx, query, project, limit)
	}
	defer rows.Close()

	summaries, err := scanSummaryRows(rows)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return s.searchSummariesLike(ctx, query, project, limit)
	}
	return summaries, nil
}

// searchSummariesLike is the substring fallback for summary search.
func (s *SummaryStore) searchSummariesLike(ctx context.Context, query, project string, limit int) ([]*models.SessionSummary, error) {
	const likeQuery = `
		SELECT ` + summaryColumns + `
		FROM session_summaries
		WHERE (request LIKE ? OR investigated LIKE ? OR learned LIKE ?
		       OR completed LIKE ? OR next_steps LIKE ? OR notes LIKE ?)
		  AND (? = '' OR project = ?)
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`
	pattern := "%" + query + "%"

	rows, err := s.store.QueryContext(ctx, likeQuery,
		pattern, pattern, pattern, pattern, pattern, pattern,
		project, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSummaryRows(rows)
}
