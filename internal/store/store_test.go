package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM verification_events").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"threads", "disappearing_configurations", "sequences", "verification_events", "sync_outbox"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_SequenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s1.db.Exec("UPDATE sequences SET value = 41 WHERE name = 'interaction_sort_id'"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	var value int64
	if err := s2.db.QueryRow("SELECT value FROM sequences WHERE name = 'interaction_sort_id'").Scan(&value); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if value != 41 {
		t.Errorf("sequence reset on reopen: got %d, want 41", value)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	_ = s.Close()
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_UserVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
}

// Schema table tests

func TestSchema_DisappearingConfigurationsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "disappearing_configurations")
	for _, col := range []string{"unique_id", "enabled", "duration_seconds", "version"} {
		if !contains(columns, col) {
			t.Errorf("disappearing_configurations table missing column %q", col)
		}
	}
}

func TestSchema_VerificationEventsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "verification_events")
	expected := []string{
		"unique_id", "unique_thread_id", "sort_id", "timestamp", "received_at_timestamp",
		"recipient_service_id", "recipient_phone_number", "verification_state", "is_local_change",
	}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("verification_events table missing column %q", col)
		}
	}
}

func TestSchema_VerificationEventsIndexes(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "verification_events")
	for _, idx := range []string{"idx_verification_events_thread", "idx_verification_events_recipient"} {
		if !contains(indexes, idx) {
			t.Errorf("verification_events table missing index %q", idx)
		}
	}
}

// Constraint tests

func TestConstraint_VerificationStateRange(t *testing.T) {
	s := createTestStore(t)
	insertThread(t, s, "thread-1")

	_, err := s.db.Exec(`
		INSERT INTO verification_events
		(unique_id, unique_thread_id, sort_id, timestamp, received_at_timestamp, verification_state, is_local_change)
		VALUES ('e1', 'thread-1', 1, 0, 0, 3, 0)
	`)
	if err == nil {
		t.Error("expected CHECK constraint failure for verification_state 3")
	}
}

func TestConstraint_SortIDUnique(t *testing.T) {
	s := createTestStore(t)
	insertThread(t, s, "thread-1")

	insert := `
		INSERT INTO verification_events
		(unique_id, unique_thread_id, sort_id, timestamp, received_at_timestamp, verification_state, is_local_change)
		VALUES (?, 'thread-1', 7, 0, 0, 1, 0)
	`
	if _, err := s.db.Exec(insert, "e1"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert, "e2"); err == nil {
		t.Error("expected UNIQUE constraint failure for duplicate sort_id")
	}
}

func TestConstraint_ThreadDeleteCascades(t *testing.T) {
	s := createTestStore(t)
	insertThread(t, s, "thread-1")

	if _, err := s.db.Exec(`INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds) VALUES ('thread-1', 1, 30)`); err != nil {
		t.Fatalf("insert configuration failed: %v", err)
	}
	if _, err := s.db.Exec(`DELETE FROM threads WHERE unique_id = 'thread-1'`); err != nil {
		t.Fatalf("delete thread failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM disappearing_configurations`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("configuration survived thread deletion: count = %d", count)
	}
}

func configurationVersion(t *testing.T, db *sql.DB, id string) int64 {
	t.Helper()
	var version int64
	if err := db.QueryRow(`SELECT version FROM disappearing_configurations WHERE unique_id = ?`, id).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	return version
}

func TestSchema_ConfigurationVersionStampedByEveryWriter(t *testing.T) {
	s := createTestStore(t)
	insertThread(t, s, "thread-1")
	insertThread(t, s, "thread-2")

	if _, err := s.db.Exec(`INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds) VALUES ('thread-1', 1, 30)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	first := configurationVersion(t, s.db, "thread-1")
	if first == 0 {
		t.Fatal("insert did not stamp a version")
	}

	if _, err := s.db.Exec(`UPDATE disappearing_configurations SET duration_seconds = 60 WHERE unique_id = 'thread-1'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	second := configurationVersion(t, s.db, "thread-1")
	if second <= first {
		t.Errorf("update did not advance version: %d -> %d", first, second)
	}

	if _, err := s.db.Exec(`INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds) VALUES ('thread-2', 0, 30)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if other := configurationVersion(t, s.db, "thread-2"); other <= second {
		t.Errorf("versions are not store-wide: thread-2 got %d after %d", other, second)
	}
}

func TestSchema_ConfigurationVersionSurvivesThreadRecreate(t *testing.T) {
	s := createTestStore(t)
	insertThread(t, s, "thread-1")

	insert := `INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds) VALUES ('thread-1', 1, 30)`
	if _, err := s.db.Exec(insert); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	before := configurationVersion(t, s.db, "thread-1")

	if _, err := s.db.Exec(`DELETE FROM threads WHERE unique_id = 'thread-1'`); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	insertThread(t, s, "thread-1")
	if _, err := s.db.Exec(insert); err != nil {
		t.Fatalf("reinsert failed: %v", err)
	}

	if after := configurationVersion(t, s.db, "thread-1"); after <= before {
		t.Errorf("recreated row reused version: %d -> %d", before, after)
	}
}

func TestMigration_V1ToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	downgrade := []string{
		"DROP TRIGGER disappearing_configurations_version_insert",
		"DROP TRIGGER disappearing_configurations_version_update",
		"ALTER TABLE disappearing_configurations DROP COLUMN version",
		"INSERT INTO threads (unique_id, created_at) VALUES ('thread-1', 0)",
		"INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds) VALUES ('thread-1', 1, 30)",
		"PRAGMA user_version = 1",
	}
	for _, stmt := range downgrade {
		if _, err := s1.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if err := s2.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
	if v := configurationVersion(t, s2.db, "thread-1"); v != 0 {
		t.Errorf("existing row version = %d, want 0", v)
	}
	if _, err := s2.db.Exec(`UPDATE disappearing_configurations SET enabled = 0 WHERE unique_id = 'thread-1'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if v := configurationVersion(t, s2.db, "thread-1"); v == 0 {
		t.Error("update after migration did not stamp a version")
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
