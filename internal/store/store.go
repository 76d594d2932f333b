package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added recipient index on verification_events
// 2 - Added version column and triggers on disappearing_configurations
const currentSchemaVersion = 2

// Store is the SQLite-backed message store shared by all thread state.
// Uses WAL mode for concurrent read access.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger sets the logger used for store lifecycle and transaction events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// serializes transactions, which the has-changed-then-write protocol relies on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	s.logger.Debug().Str("path", path).Int("schema_version", currentSchemaVersion).Msg("store opened")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read runs fn inside a read-only transaction. Write operations attempted
// through the Tx fail with a TX_MISUSE error.
func (s *Store) Read(ctx context.Context, fn func(*Tx) error) error {
	return s.run(ctx, false, fn)
}

// Write runs fn inside a read-write transaction. The transaction commits when
// fn returns nil and rolls back otherwise (including on panic).
func (s *Store) Write(ctx context.Context, fn func(*Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, writable bool, fn func(*Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if !writable {
		// Runs after commit or rollback has released the connection.
		defer s.releaseQueryOnly()
	}

	tx := &Tx{ctx: ctx, tx: sqlTx, writable: writable}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Warn().Err(rbErr).Bool("writable", writable).Msg("rollback failed")
		}
	}()

	// query_only is per connection, so every transaction sets it for its own
	// mode. Read transactions then reject DML sent through Query or QueryRow.
	queryOnly := "PRAGMA query_only = OFF"
	if !writable {
		queryOnly = "PRAGMA query_only = ON"
	}
	if _, err := sqlTx.ExecContext(ctx, queryOnly); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true

	for _, hook := range tx.afterCommit {
		hook()
	}
	return nil
}

// releaseQueryOnly clears query_only after a read transaction so statements
// run outside Read and Write see a writable connection.
func (s *Store) releaseQueryOnly() {
	if _, err := s.db.Exec("PRAGMA query_only = OFF"); err != nil {
		s.logger.Warn().Err(err).Msg("reset query_only failed")
	}
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes verification events by recipient for latest-state lookups.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_verification_events_recipient
		ON verification_events(unique_thread_id, recipient_service_id, recipient_phone_number, sort_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 versions configuration rows. Every insert, and every update of
// the settings columns, stamps the row with the next value of the
// configuration_version sequence, whoever the writer is.
func migrateToV2(db *sql.DB) error {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('disappearing_configurations')
		WHERE name = 'version'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("migrate to v2: inspect columns: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE disappearing_configurations ADD COLUMN version INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("migrate to v2: add version column: %w", err)
		}
	}

	_, err = db.Exec(`
		CREATE TRIGGER IF NOT EXISTS disappearing_configurations_version_insert
		AFTER INSERT ON disappearing_configurations
		BEGIN
			UPDATE sequences SET value = value + 1 WHERE name = 'configuration_version';
			UPDATE disappearing_configurations
			SET version = (SELECT value FROM sequences WHERE name = 'configuration_version')
			WHERE unique_id = NEW.unique_id;
		END;

		CREATE TRIGGER IF NOT EXISTS disappearing_configurations_version_update
		AFTER UPDATE OF enabled, duration_seconds ON disappearing_configurations
		BEGIN
			UPDATE sequences SET value = value + 1 WHERE name = 'configuration_version';
			UPDATE disappearing_configurations
			SET version = (SELECT value FROM sequences WHERE name = 'configuration_version')
			WHERE unique_id = NEW.unique_id;
		END;
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: create triggers: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
