package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memkeep/memkeep/pkg/models"
)

const observationColumns = `id, claude_session_id, project, type, title, subtitle, narrative,
	facts, concepts, files_read, files_modified,
	prompt_number, discovery_tokens, embedding, created_at, created_at_epoch`

// MaxObservationsPerProject is the retention cap per project. Writes
// beyond the cap sweep the oldest rows.
const MaxObservationsPerProject = 100

// ObservationStore provides observation-related database operations.
type ObservationStore struct {
	store *Store
}

// NewObservationStore creates a new observation store.
func NewObservationStore(store *Store) *ObservationStore {
	return &ObservationStore{store: store}
}

// StoreObservation stores a new observation for an existing session.
// Returns models.ErrNotFound when the session is unknown: observations
// never create their own session.
func (s *ObservationStore) StoreObservation(ctx context.Context, claudeSessionID, project string, obs *models.ParsedObservation, promptNumber int, discoveryTokens int64) (int64, error) {
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
		INSERT INTO observations
		(claude_session_id, project, type, title, subtitle, narrative,
		 facts, concepts, files_read, files_modified,
		 prompt_number, discovery_tokens, embedding, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		claudeSessionID, project, string(models.ParseObservationType(string(obs.Type))),
		nullString(obs.Title), nullString(obs.Subtitle), nullString(obs.Narrative),
		models.JSONStringArray(obs.Facts), models.JSONStringArray(obs.Concepts),
		models.JSONStringArray(obs.FilesRead), models.JSONStringArray(obs.FilesModified),
		nullInt(promptNumber), discoveryTokens, models.JSONFloatArray(obs.Embedding),
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	// Retention sweep runs inline: all writes share the single
	// pipeline worker, so there is nothing to contend with.
	if project != "" {
		if _, err := s.CleanupOldObservations(ctx, project); err != nil {
			return id, err
		}
	}

	return id, nil
}

// GetObservationByID retrieves an observation by id. Returns nil
// without error when no row exists.
func (s *ObservationStore) GetObservationByID(ctx context.Context, id int64) (*models.Observation, error) {
	const query = `SELECT ` + observationColumns + ` FROM observations WHERE id = ?`

	obs, err := scanObservation(s.store.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return obs, err
}

// GetRecentObservations retrieves recent observations for a project,
// newest first.
func (s *ObservationStore) GetRecentObservations(ctx context.Context, project string, limit int) ([]*models.Observation, error) {
	const query = `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE project = ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// GetObservationsSince retrieves observations for a project created at
// or after sinceEpoch, newest first. An optional project narrows the
// result; empty project means all projects.
func (s *ObservationStore) GetObservationsSince(ctx context.Context, project string, sinceEpoch int64, limit int) ([]*models.Observation, error) {
	const query = `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE (? = '' OR project = ?) AND created_at_epoch >= ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, project, project, sinceEpoch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// GetObservationsByType retrieves observations of one type, newest
// first, optionally narrowed by project and a since epoch.
func (s *ObservationStore) GetObservationsByType(ctx context.Context, obsType models.ObservationType, project string, sinceEpoch int64, limit int) ([]*models.Observation, error) {
	const query = `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE type = ? AND (? = '' OR project = ?) AND created_at_epoch >= ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, string(obsType), project, project, sinceEpoch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// GetObservationsByFile retrieves observations that read or modified
// the given file path, newest first.
func (s *ObservationStore) GetObservationsByFile(ctx context.Context, file string, limit int) ([]*models.Observation, error) {
	const query = `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE files_read LIKE ? OR files_modified LIKE ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`
	pattern := "%" + file + "%"

	rows, err := s.store.QueryContext(ctx, query, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// SearchObservations performs ranked full-text search over title,
// subtitle, narrative, facts, and concepts. project narrows by exact
// match; concept is case-insensitive containment against the concepts
// list. Falls back to a LIKE scan when the match expression finds
// nothing, so substring queries still land.
func (s *ObservationStore) SearchObservations(ctx context.Context, query, project, concept string, limit int) ([]*models.Observation, error) {
	if limit <= 0 {
		limit = 10
	}

	ftsExpr := buildFTSQuery(query)
	if ftsExpr == "" {
		return nil, nil
	}

	const ftsQuery = `
		SELECT o.id, o.claude_session_id, o.project, o.type, o.title, o.subtitle, o.narrative,
		       o.facts, o.concepts, o.files_read, o.files_modified,
		       o.prompt_number, o.discovery_tokens, o.embedding, o.created_at, o.created_at_epoch,
		       fts.rank
		FROM observations o
		JOIN observations_fts fts ON o.id = fts.rowid
		WHERE observations_fts MATCH ?
		  AND (? = '' OR o.project = ?)
		  AND (? = '' OR instr(lower(o.concepts), lower(?)) > 0)
		ORDER BY fts.rank
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, ftsQuery, ftsExpr, project, project, concept, concept, limit)
	if err != nil {
		return s.searchObservationsLike(ctx, query, project, concept, limit)
	}
	defer rows.Close()

	var observations []*models.Observation
	for rows.Next() {
		var obs models.Observation
		if err := rows.Scan(
			&obs.ID, &obs.ClaudeSessionID, &obs.Project, &obs.Type,
			&obs.Title, &obs.Subtitle, &obs.Narrative,
			&obs.Facts, &obs.Concepts, &obs.FilesRead, &obs.FilesModified,
			&obs.PromptNumber, &obs.DiscoveryTokens, &obs.Embedding,
			&obs.CreatedAt, &obs.CreatedAtEpoch, &obs.Rank,
		); err != nil {
			return nil, err
		}
		observations = append(observations, &obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(observations) == 0 {
		return s.searchObservationsLike(ctx, query, project, concept, limit)
	}
	return observations, nil
}

// searchObservationsLike is the substring fallback for queries FTS5
// tokenization cannot serve.
func (s *ObservationStore) searchObservationsLike(ctx context.Context, query, project, concept string, limit int) ([]*models.Observation, error) {
	const likeQuery = `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE (title LIKE ? OR subtitle LIKE ? OR narrative LIKE ? OR facts LIKE ? OR concepts LIKE ?)
		  AND (? = '' OR project = ?)
		  AND (? = '' OR instr(lower(concepts), lower(?)) > 0)
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`
	pattern := "%" + query + "%"

	rows, err := s.store.QueryContext(ctx, likeQuery,
		pattern, pattern, pattern, pattern, pattern,
		project, project, concept, concept, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// GetCandidateObservations retrieves cross-project candidates for
// deduplication and backfill. With a non-empty ftsQuery the results
// come relevance-ranked; otherwise newest first.
func (s *ObservationStore) GetCandidateObservations(ctx context.Context, limit int, ftsQuery string) ([]*models.Observation, error) {
	if limit <= 0 {
		limit = 10
	}

	if ftsQuery == "" {
		const query = `
			SELECT ` + observationColumns + `
			FROM observations
			ORDER BY created_at_epoch DESC
			LIMIT ?
		`
		rows, err := s.store.QueryContext(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanObservationRows(rows)
	}

	expr := buildFTSQuery(ftsQuery)
	if expr == "" {
		return nil, nil
	}

	const query = `
		SELECT o.id, o.claude_session_id, o.project, o.type, o.title, o.subtitle, o.narrative,
		       o.facts, o.concepts, o.files_read, o.files_modified,
		       o.prompt_number, o.discovery_tokens, o.embedding, o.created_at, o.created_at_epoch,
		       fts.rank
		FROM observations o
		JOIN observations_fts fts ON o.id = fts.rowid
		WHERE observations_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, expr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*models.Observation
	for rows.Next() {
		var obs models.Observation
		if err := rows.Scan(
			&obs.ID, &obs.ClaudeSessionID, &obs.Project, &obs.Type,
			&obs.Title, &obs.Subtitle, &obs.Narrative,
			&obs.Facts, &obs.Concepts, &obs.FilesRead, &obs.FilesModified,
			&obs.PromptNumber, &obs.DiscoveryTokens, &obs.Embedding,
			&obs.CreatedAt, &obs.CreatedAtEpoch, &obs.Rank,
		); err != nil {
			return nil, err
		}
		observations = append(observations, &obs)
	}
	return observations, rows.Err()
}

// FindRecentByTitle retrieves observations in one project created at or
// after sinceEpoch whose indexed title matches the given title text,
// newest first. Used by the duplicate detector.
func (s *ObservationStore) FindRecentByTitle(ctx context.Context, project, title string, sinceEpoch int64, limit int) ([]*models.Observation, error) {
	expr := buildFTSQuery(title)
	if expr == "" {
		return nil, nil
	}

	const query = `
		SELECT o.id, o.claude_session_id, o.project, o.type, o.title, o.subtitle, o.narrative,
		       o.facts, o.concepts, o.files_read, o.files_modified,
		       o.prompt_number, o.discovery_tokens, o.embedding, o.created_at, o.created_at_epoch
		FROM observations o
		JOIN observations_fts fts ON o.id = fts.rowid
		WHERE observations_fts MATCH ?
		  AND o.project = ?
		  AND o.created_at_epoch >= ?
		ORDER BY o.created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, "title : ("+expr+")", project, sinceEpoch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservationRows(rows)
}

// DeleteObservations deletes observations by id, returning the number
// of rows removed.
func (s *ObservationStore) DeleteObservations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM observations WHERE id IN (?` + repeatPlaceholders(len(ids)-1) + `)`

	result, err := s.store.DB().ExecContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CleanupOldObservations deletes observations beyond the per-project
// retention cap, oldest first. Returns the deleted ids.
func (s *ObservationStore) CleanupOldObservations(ctx context.Context, project string) ([]int64, error) {
	const selectQuery = `
		SELECT id FROM observations
		WHERE project = ? AND id NOT IN (
			SELECT id FROM observations
			WHERE project = ?
			ORDER BY created_at_epoch DESC
			LIMIT ?
		)
	`

	rows, err := s.store.QueryContext(ctx, selectQuery, project, project, MaxObservationsPerProject)
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
	if _, err := s.DeleteObservations(ctx, toDelete); err != nil {
		return nil, err
	}
	return toDelete, nil
}
