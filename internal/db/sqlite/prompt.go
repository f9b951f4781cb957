package sqlite

import (
	"context"
	"time"

	"github.com/memkeep/memkeep/pkg/models"
)

// MaxPromptsGlobal is the retention cap on the prompt log across all
// projects.
const MaxPromptsGlobal = 500

// PromptStore provides user-prompt database operations.
type PromptStore struct {
	store *Store
}

// NewPromptStore creates a new prompt store.
func NewPromptStore(store *Store) *PromptStore {
	return &PromptStore{store: store}
}

// SaveUserPrompt appends a prompt to the session's prompt log.
func (s *PromptStore) SaveUserPrompt(ctx context.Context, claudeSessionID string, promptNumber int64, promptText string) (int64, error) {
	now := time.Now()

	const query = `
		INSERT INTO user_prompts
		(claude_session_id, prompt_number, prompt_text, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		claudeSessionID, promptNumber, promptText,
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := s.CleanupOldPrompts(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// GetSessionPrompts retrieves the prompt log of one session in prompt
// order.
func (s *PromptStore) GetSessionPrompts(ctx context.Context, claudeSessionID string) ([]*models.UserPrompt, error) {
	const query = `
		SELECT id, claude_session_id, prompt_number, prompt_text, created_at, created_at_epoch
		FROM user_prompts
		WHERE claude_session_id = ?
		ORDER BY prompt_number ASC
	`

	rows, err := s.store.QueryContext(ctx, query, claudeSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []*models.UserPrompt
	for rows.Next() {
		var p models.UserPrompt
		if err := rows.Scan(&p.ID, &p.ClaudeSessionID, &p.PromptNumber, &p.PromptText,
			&p.CreatedAt, &p.CreatedAtEpoch); err != nil {
			return nil, err
		}
		prompts = append(prompts, &p)
	}
	return prompts, rows.Err()
}

// SearchPrompts performs ranked full-text search over the prompt log,
// joining session context for project attribution.
func (s *PromptStore) SearchPrompts(ctx context.Context, query, project string, limit int) ([]*models.UserPromptWithSession, error) {
	if limit <= 0 {
		limit = 10
	}

	expr := buildFTSQuery(query)
	if expr == "" {
		return nil, nil
	}

	const ftsQuery = `
		SELECT up.id, up.claude_session_id, up.prompt_number, up.prompt_text,
		       up.created_at, up.created_at_epoch, s.project
		FROM user_prompts up
		JOIN user_prompts_fts fts ON up.id = fts.rowid
		JOIN sessions s ON up.claude_session_id = s.claude_session_id
		WHERE user_prompts_fts MATCH ?
		  AND (? = '' OR s.project = ?)
		ORDER BY fts.rank
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, ftsQuery, expr, project, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []*models.UserPromptWithSession
	for rows.Next() {
		var p models.UserPromptWithSession
		if err := rows.Scan(&p.ID, &p.ClaudeSessionID, &p.PromptNumber, &p.PromptText,
			&p.CreatedAt, &p.CreatedAtEpoch, &p.Project); err != nil {
			return nil, err
		}
		prompts = append(prompts, &p)
	}
	return prompts, rows.Err()
}

// CleanupOldPrompts deletes prompts beyond the global retention cap,
// oldest first. Returns the deleted ids.
func (s *PromptStore) CleanupOldPrompts(ctx context.Context) ([]int64, error) {
	const selectQuery = `
		SELECT id FROM user_prompts
		WHERE id NOT IN (
			SELECT id FROM user_prompts
			ORDER BY created_at_epoch DESC
			LIMIT ?
		)
	`

	rows, err := s.store.QueryContext(ctx, selectQuery, MaxPromptsGlobal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var toDelete []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		toDelete = append(toDelete, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(toDelete) == 0 {
		return nil, nil
	}

	query := `DELETE FROM user_prompts WHERE id IN (?` + repeatPlaceholders(len(toDelete)-1) + `)`
	if _, err := s.store.DB().ExecContext(ctx, query, int64Args(toDelete)...); err != nil {
		return nil, err
	}
	return toDelete, nil
}
