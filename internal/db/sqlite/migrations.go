package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migration is one idempotent schema step. Versions are applied in
// ascending order; the store's PRAGMA user_version records the highest
// applied version. There are no down-migrations.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations is the ordered schema history. Every statement uses
// IF NOT EXISTS semantics so re-running a step is safe.
var migrations = []migration{
	{
		version: 1,
		name:    "core_tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				claude_session_id TEXT NOT NULL UNIQUE,
				project TEXT NOT NULL,
				user_prompt TEXT,
				prompt_counter INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL DEFAULT 'active'
					CHECK (status IN ('active', 'completed', 'failed')),
				started_at TEXT NOT NULL,
				started_at_epoch INTEGER NOT NULL,
				completed_at TEXT,
				completed_at_epoch INTEGER
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at_epoch DESC)`,

			`CREATE TABLE IF NOT EXISTS observations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				claude_session_id TEXT NOT NULL,
				project TEXT NOT NULL,
				type TEXT NOT NULL
					CHECK (type IN ('decision', 'bugfix', 'feature', 'refactor', 'discovery', 'change')),
				title TEXT,
				subtitle TEXT,
				narrative TEXT,
				facts TEXT NOT NULL DEFAULT '[]',
				concepts TEXT NOT NULL DEFAULT '[]',
				files_read TEXT NOT NULL DEFAULT '[]',
				files_modified TEXT NOT NULL DEFAULT '[]',
				prompt_number INTEGER,
				discovery_tokens INTEGER NOT NULL DEFAULT 0,
				embedding TEXT,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(claude_session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_project ON observations(project)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_type ON observations(type)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_created ON observations(created_at_epoch DESC)`,

			`CREATE TABLE IF NOT EXISTS session_summaries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				claude_session_id TEXT NOT NULL,
				project TEXT NOT NULL,
				request TEXT,
				investigated TEXT,
				learned TEXT,
				completed TEXT,
				next_steps TEXT,
				notes TEXT,
				prompt_number INTEGER,
				discovery_tokens INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_summaries_session ON session_summaries(claude_session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_summaries_project ON session_summaries(project)`,
			`CREATE INDEX IF NOT EXISTS idx_summaries_created ON session_summaries(created_at_epoch DESC)`,

			`CREATE TABLE IF NOT EXISTS user_prompts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				claude_session_id TEXT NOT NULL,
				prompt_number INTEGER NOT NULL,
				prompt_text TEXT NOT NULL,
				created_at TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL,
				UNIQUE (claude_session_id, prompt_number)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_prompts_created ON user_prompts(created_at_epoch DESC)`,
		},
	},
	{
		version: 2,
		name:    "observations_fts",
		stmts: []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
				title, subtitle, narrative, facts, concepts,
				content='observations',
				content_rowid='id'
			)`,
			`CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
				INSERT INTO observations_fts(rowid, title, subtitle, narrative, facts, concepts)
				VALUES (new.id, new.title, new.subtitle, new.narrative, new.facts, new.concepts);
			END`,
			`CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, subtitle, narrative, facts, concepts)
				VALUES('delete', old.id, old.title, old.subtitle, old.narrative, old.facts, old.concepts);
			END`,
			`CREATE TRIGGER IF NOT EXISTS observations_au AFTER UPDATE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, subtitle, narrative, facts, concepts)
				VALUES('delete', old.id, old.title, old.subtitle, old.narrative, old.facts, old.concepts);
				INSERT INTO observations_fts(rowid, title, subtitle, narrative, facts, concepts)
				VALUES (new.id, new.title, new.subtitle, new.narrative, new.facts, new.concepts);
			END`,
		},
	},
	{
		version: 3,
		name:    "session_summaries_fts",
		stmts: []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS session_summaries_fts USING fts5(
				request, investigated, learned, completed, next_steps, notes,
				content='session_summaries',
				content_rowid='id'
			)`,
			`CREATE TRIGGER IF NOT EXISTS session_summaries_ai AFTER INSERT ON session_summaries BEGIN
				INSERT INTO session_summaries_fts(rowid, request, investigated, learned, completed, next_steps, notes)
				VALUES (new.id, new.request, new.investigated, new.learned, new.completed, new.next_steps, new.notes);
			END`,
			`CREATE TRIGGER IF NOT EXISTS session_summaries_ad AFTER DELETE ON session_summaries BEGIN
				INSERT INTO session_summaries_fts(session_summaries_fts, rowid, request, investigated, learned, completed, next_steps, notes)
				VALUES('delete', old.id, old.request, old.investigated, old.learned, old.completed, old.next_steps, old.notes);
			END`,
			`CREATE TRIGGER IF NOT EXISTS session_summaries_au AFTER UPDATE ON session_summaries BEGIN
				INSERT INTO session_summaries_fts(session_summaries_fts, rowid, request, investigated, learned, completed, next_steps, notes)
				VALUES('delete', old.id, old.request, old.investigated, old.learned, old.completed, old.next_steps, old.notes);
				INSERT INTO session_summaries_fts(rowid, request, investigated, learned, completed, next_steps, notes)
				VALUES (new.id, new.request, new.investigated, new.learned, new.completed, new.next_steps, new.notes);
			END`,
		},
	},
	{
		version: 4,
		name:    "user_prompts_fts",
		stmts: []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS user_prompts_fts USING fts5(
				prompt_text,
				content='user_prompts',
				content_rowid='id'
			)`,
			`CREATE TRIGGER IF NOT EXISTS user_prompts_ai AFTER INSERT ON user_prompts BEGIN
				INSERT INTO user_prompts_fts(rowid, prompt_text)
				VALUES (new.id, new.prompt_text);
			END`,
			`CREATE TRIGGER IF NOT EXISTS user_prompts_ad AFTER DELETE ON user_prompts BEGIN
				INSERT INTO user_prompts_fts(user_prompts_fts, rowid, prompt_text)
				VALUES('delete', old.id, old.prompt_text);
			END`,
			`CREATE TRIGGER IF NOT EXISTS user_prompts_au AFTER UPDATE ON user_prompts BEGIN
				INSERT INTO user_prompts_fts(user_prompts_fts, rowid, prompt_text)
				VALUES('delete', old.id, old.prompt_text);
				INSERT INTO user_prompts_fts(rowid, prompt_text)
				VALUES (new.id, new.prompt_text);
			END`,
		},
	},
}

// Migrate applies every migration newer than the store's recorded
// version, each in its own transaction. Failure aborts immediately.
func Migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): begin: %w", m.version, m.name, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		// PRAGMA cannot be parameterized.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): set user_version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): commit: %w", m.version, m.name, err)
		}

		log.Info().
			Int("version", m.version).
			Str("name", m.name).
			Msg("Applied schema migration")
	}

	return nil
}
