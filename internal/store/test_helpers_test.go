package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertThread inserts a thread row directly, bypassing transactions.
func insertThread(t *testing.T, s *Store, id string) {
	t.Helper()
	if _, err := s.db.Exec(`INSERT INTO threads (unique_id, created_at) VALUES (?, 0)`, id); err != nil {
		t.Fatalf("insert thread %q failed: %v", id, err)
	}
}
