package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/store/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLite(filepath.Join(t.TempDir(), "test.db"), logger.Nop())
}

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Repository {
		return newTestStore(t)
	})
}

func TestSQLiteSchemaVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s := NewSQLite(path, logger.Nop())
	_, err := s.Version(ctx)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	require.NoError(t, s.Initialize(ctx))
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
	require.NoError(t, s.SaveCompleted(ctx, storetest.RealJourney("j1", storetest.At(1))))
	require.NoError(t, s.Close())

	// reopening runs no migration and keeps the data
	reopened := NewSQLite(path, logger.Nop())
	require.NoError(t, reopened.Initialize(ctx))
	defer reopened.Close()
	v, err = reopened.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
	got, err := reopened.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)
	assert.Len(t, got.ActionItems, 2)
}

func TestSQLiteRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := NewSQLite(path, logger.Nop())
	err = s.Initialize(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
	assert.False(t, s.IsReady())

	_, err = s.GetDrafts(ctx)
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func countRows(t *testing.T, q querier, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, q.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestMigrationRebuildKeepsChildRows(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	// a database left at v4 by an older build
	require.NoError(t, migrateTo(ctx, conn, 4, logger.Nop()))
	v, err := schemaVersion(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, 4, v)

	_, err = conn.ExecContext(ctx, `INSERT INTO journeys (id, created_at, updated_at, completed_at, is_draft, current_step, path_type, sentiment)
		VALUES ('old', 1, 2, 3, 0, 8, 'REAL', 'negative')`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO journey_emotions (journey_id, emotion_type, intensity, captured_at_step) VALUES ('old', 'sad', 3, 2)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO journey_action_items (journey_id, action_text, created_at, target_date) VALUES ('old', 'walk', 1, 10)`)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `INSERT INTO journeys (id, created_at, updated_at, sentiment) VALUES ('mixed-v4', 1, 1, 'mixed')`)
	require.Error(t, err, "v4 only knows three sentiments")

	require.NoError(t, migrateTo(ctx, conn, CurrentSchemaVersion, logger.Nop()))

	v, err = schemaVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	assert.Equal(t, 1, countRows(t, conn, "SELECT COUNT(*) FROM journey_emotions WHERE journey_id = 'old'"))
	assert.Equal(t, 1, countRows(t, conn, "SELECT COUNT(*) FROM journey_action_items WHERE journey_id = 'old'"))
	assert.Equal(t, 1, countRows(t, conn, "SELECT COUNT(*) FROM journeys WHERE id = 'old' AND sentiment = 'negative' AND path_type = 'REAL'"))
	assert.Equal(t, 1, countRows(t, conn, "PRAGMA foreign_keys"), "foreign keys are back on")

	_, err = conn.ExecContext(ctx, `INSERT INTO journeys (id, created_at, updated_at, sentiment) VALUES ('mixed-v6', 1, 1, 'mixed')`)
	assert.NoError(t, err)

	// the cascade still points at the rebuilt table
	_, err = conn.ExecContext(ctx, "DELETE FROM journeys WHERE id = 'old'")
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM journey_emotions"))
	assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM journey_action_items"))
}

func TestAddColumnIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, addColumn("things", "label", "TEXT")(ctx, tx))
		require.NoError(t, tx.Commit())
	}

	exists, err := columnExists(ctx, db, "things", "label")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSaveCompletedRollsBackOnChildFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Initialize(ctx))
	defer s.Close()

	// action items fail after the parent row and emotions were written
	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER fail_action_items BEFORE INSERT ON journey_action_items
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	j := storetest.RealJourney("broken", storetest.At(1))
	updatedAt := j.UpdatedAt

	err = s.SaveCompleted(ctx, j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, updatedAt, j.UpdatedAt, "caller's journey is not stamped on failure")

	_, err = s.GetJourneyByID(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, countRows(t, s.db, "SELECT COUNT(*) FROM journeys WHERE id = ?", "broken"))
	assert.Equal(t, 0, countRows(t, s.db, "SELECT COUNT(*) FROM journey_emotions WHERE journey_id = ?", "broken"))
}

func TestCheckConstraintsStillHold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Initialize(ctx))
	defer s.Close()

	require.NoError(t, s.SaveCompleted(ctx, storetest.RealJourney("j1", storetest.At(1))))

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO journey_emotions (journey_id, emotion_type, intensity, captured_at_step) VALUES (?, ?, ?, ?)",
		"j1", "rage", 9, 2)
	assert.ErrorContains(t, err, "CHECK constraint failed")

	_, err = s.db.ExecContext(ctx,
		"UPDATE journey_reevaluations SET original_belief_rating = 42 WHERE journey_id = ?", "j1")
	assert.ErrorContains(t, err, "CHECK constraint failed")
}
