package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.False(t, os.IsNotExist(err), "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	tables := []string{"deliveries", "candidate_sessions", "candidate_events", "candidate_responses", "assessment_results"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	s.Close()

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestAtomically_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(tx *Store) error {
		if _, err := tx.AppendEvent(ctx, sess.ID, itemEvent(t, "INIT", epoch)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	events, err := s.EventsForSession(ctx, sess.ID, "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAtomically_Commits(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	err := s.Atomically(ctx, func(tx *Store) error {
		if _, err := tx.AppendEvent(ctx, sess.ID, itemEvent(t, "INIT", epoch)); err != nil {
			return err
		}
		sess.Closed = true
		return tx.UpdateSession(ctx, sess)
	})
	require.NoError(t, err)

	got, err := s.ReadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Closed)

	events, err := s.EventsForSession(ctx, sess.ID, "")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEvents_AppendOnly(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	ev, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, "INIT", epoch))
	require.NoError(t, err)

	_, err = s.db.Exec("UPDATE candidate_events SET item_type = 'CLOSE' WHERE id = ?", int64(ev.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.db.Exec("DELETE FROM candidate_events WHERE id = ?", int64(ev.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")
}

func TestClose_TransactionStoreIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Atomically(ctx, func(tx *Store) error {
		return tx.Close()
	})
	require.NoError(t, err)

	_, err = s.ListDeliveries(ctx)
	assert.NoError(t, err, "outer store must stay usable")
}
