package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memkeep/memkeep/pkg/models"
)

// testStore opens a fresh store in a temp directory with all
// migrations applied.
func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// mustCreateSession creates a session and returns its internal id.
func mustCreateSession(t *testing.T, store *Store, claudeSessionID, project string) int64 {
	t.Helper()

	id, _, err := NewSessionStore(store).CreateSession(context.Background(), claudeSessionID, project, "initial prompt")
	require.NoError(t, err)
	return id
}

// mustStoreObservation stores an observation and returns its id.
func mustStoreObservation(t *testing.T, store *Store, claudeSessionID, project string, obs *models.ParsedObservation) int64 {
	t.Helper()

	id, err := NewObservationStore(store).StoreObservation(context.Background(), claudeSessionID, project, obs, 1, 100)
	require.NoError(t, err)
	return id
}

func TestMigrateIdempotent(t *testing.T) {
	store := testStore(t)

	// Re-running migrations on an up-to-date store is a no-op.
	require.NoError(t, Migrate(store.DB()))

	var version int
	require.NoError(t, store.DB().QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, len(migrations), version)
}

func TestCounts(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, counts.Sessions)
	require.Zero(t, counts.Observations)

	mustCreateSession(t, store, "session-1", "proj")
	mustStoreObservation(t, store, "session-1", "proj", &models.ParsedObservation{
		Type:  models.ObsTypeDiscovery,
		Title: "Found the config loader",
	})

	counts, err = store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts.Sessions)
	require.Equal(t, int64(1), counts.Observations)
}

func TestStmtCacheReuse(t *testing.T) {
	store := testStore(t)

	const q = `SELECT COUNT(*) FROM sessions`
	s1, err := store.GetStmt(q)
	require.NoError(t, err)
	s2, err := store.GetStmt(q)
	require.NoError(t, err)
	require.Same(t, s1, s2)
}
