// Package testutil provides shared helpers for package tests: temp-dir
// stores, seeded threads, and deterministic clocks.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/threadstate/internal/store"
)

// OpenStore opens a fresh store in t.TempDir and closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// SeedThread inserts thread rows for the given ids.
func SeedThread(t testing.TB, st *store.Store, ids ...string) {
	t.Helper()
	err := st.Write(context.Background(), func(tx *store.Tx) error {
		for _, id := range ids {
			if _, err := tx.Exec("seed thread", `
				INSERT INTO threads (unique_id, created_at) VALUES (?, ?)
				ON CONFLICT(unique_id) DO NOTHING
			`, id, EpochMillis); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// Read runs fn in a read transaction and fails the test on error.
func Read(t testing.TB, st *store.Store, fn func(*store.Tx) error) {
	t.Helper()
	require.NoError(t, st.Read(context.Background(), fn))
}

// Write runs fn in a write transaction and fails the test on error.
func Write(t testing.TB, st *store.Store, fn func(*store.Tx) error) {
	t.Helper()
	require.NoError(t, st.Write(context.Background(), fn))
}
