package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memkeep/memkeep/pkg/models"
)

const sessionColumns = `id, claude_session_id, project, user_prompt,
	prompt_counter, status, started_at, started_at_epoch,
	completed_at, completed_at_epoch`

// SessionStore provides session-related database operations.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a new session store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// CreateSession creates a session, or returns the existing one when the
// external id is already known. INSERT OR IGNORE makes the call
// idempotent; the bool reports whether a new row was created.
func (s *SessionStore) CreateSession(ctx context.Context, claudeSessionID, project, userPrompt string) (int64, bool, error) {
	now := time.Now()

	const query = `
		INSERT OR IGNORE INTO sessions
		(claude_session_id, project, user_prompt, started_at, started_at_epoch, status)
		VALUES (?, ?, ?, ?, ?, 'active')
	`

	result, err := s.store.ExecContext(ctx, query,
		claudeSessionID, project, nullString(userPrompt),
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, false, err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var id int64
		const selectQuery = `SELECT id FROM sessions WHERE claude_session_id = ? LIMIT 1`
		err := s.store.QueryRowContext(ctx, selectQuery, claudeSessionID).Scan(&id)
		return id, false, err
	}

	id, err := result.LastInsertId()
	return id, true, err
}

// GetSessionByClaudeID retrieves a session by its external identifier.
// Returns nil without error when no row exists.
func (s *SessionStore) GetSessionByClaudeID(ctx context.Context, claudeSessionID string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE claude_session_id = ? LIMIT 1`

	sess, err := scanSession(s.store.QueryRowContext(ctx, query, claudeSessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSessionByID retrieves a session by its internal id.
func (s *SessionStore) GetSessionByID(ctx context.Context, id int64) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? LIMIT 1`

	sess, err := scanSession(s.store.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateStatus sets the session status and stamps the completion time
// when the status is terminal.
func (s *SessionStore) UpdateStatus(ctx context.Context, id int64, status models.SessionStatus) error {
	if status.IsTerminal() {
		now := time.Now()
		const query = `
			UPDATE sessions
			SET status = ?, completed_at = ?, completed_at_epoch = ?
			WHERE id = ?
		`
		_, err := s.store.ExecContext(ctx, query,
			string(status), now.Format(time.RFC3339), now.UnixMilli(), id)
		return err
	}

	const query = `UPDATE sessions SET status = ? WHERE id = ?`
	_, err := s.store.ExecContext(ctx, query, string(status), id)
	return err
}

// IncrementPromptCounter atomically increments the prompt counter and
// returns the new value. The counter initializes at 1 on creation, so
// the first increment returns 2.
func (s *SessionStore) IncrementPromptCounter(ctx context.Context, id int64) (int64, error) {
	const query = `
		UPDATE sessions
		SET prompt_counter = prompt_counter + 1
		WHERE id = ?
		RETURNING prompt_counter
	`
	var counter int64
	err := s.store.QueryRowContext(ctx, query, id).Scan(&counter)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	return counter, err
}

// DeleteSession removes a session and cascades to its observations,
// summaries, and prompts in one transaction. The FTS delete triggers
// fire for every removed child row, keeping the index consistent.
func (s *SessionStore) DeleteSession(ctx context.Context, claudeSessionID string) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE claude_session_id = ?`, claudeSessionID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return models.ErrNotFound
	}

	children := []string{
		`DELETE FROM observations WHERE claude_session_id = ?`,
		`DELETE FROM session_summaries WHERE claude_session_id = ?`,
		`DELETE FROM user_prompts WHERE claude_session_id = ?`,
	}
	for _, q := range children {
		if _, err := tx.ExecContext(ctx, q, claudeSessionID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetAllProjects returns all distinct project names.
func (s *SessionStore) GetAllProjects(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT project
		FROM sessions
		WHERE project != ''
		ORDER BY project ASC
	`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
