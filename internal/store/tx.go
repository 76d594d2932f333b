package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Tx is a scoped transaction handle. Handles are created by Store.Read and
// Store.Write and are only valid inside the callback that received them.
//
// A read-only Tx rejects writes through Exec with a TX_MISUSE error before the
// statement reaches SQLite, so a misuse never partially applies. The
// connection also runs with query_only set, so DML sent through Query or
// QueryRow fails in SQLite.
type Tx struct {
	ctx         context.Context
	tx          *sql.Tx
	writable    bool
	afterCommit []func()
}

// Writable reports whether the transaction accepts writes.
func (t *Tx) Writable() bool {
	return t.writable
}

// Context returns the context the transaction was opened with.
func (t *Tx) Context() context.Context {
	return t.ctx
}

// QueryRow executes a query expected to return at most one row.
func (t *Tx) QueryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

// Query executes a query returning rows. Callers must close the rows.
func (t *Tx) Query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

// Exec runs a write statement. op names the calling operation and is used
// for error reporting. Foreign key violations are reported as
// REFERENTIAL_INTEGRITY errors.
func (t *Tx) Exec(op, query string, args ...any) (sql.Result, error) {
	if err := t.RequireWritable(op); err != nil {
		return nil, err
	}
	result, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, &Error{Code: ErrCodeReferentialIntegrity, Op: op, Message: "referenced row does not exist", Err: err}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RequireWritable returns a TX_MISUSE error when the transaction is read-only.
func (t *Tx) RequireWritable(op string) error {
	if t.writable {
		return nil
	}
	return NewMisuseError(op)
}

// NextSequence increments the named store-scoped counter and returns the new
// value. Values are strictly increasing across the lifetime of the database.
func (t *Tx) NextSequence(name string) (uint64, error) {
	op := "next sequence " + name
	if err := t.RequireWritable(op); err != nil {
		return 0, err
	}

	var value uint64
	err := t.tx.QueryRowContext(t.ctx, `
		UPDATE sequences SET value = value + 1
		WHERE name = ?
		RETURNING value
	`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, NewNotFoundError(op, "unknown sequence")
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}

// AfterCommit registers fn to run once the transaction has committed.
// Hooks never run for rolled-back transactions.
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
