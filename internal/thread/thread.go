// Package thread holds the minimal conversation-thread surface the rest of
// the store depends on: a stable unique id, and thread rows that
// configurations and verification events reference.
package thread

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/threadstate/internal/clock"
	"github.com/roach88/threadstate/internal/store"
)

// Thread is any conversation that can own per-thread state.
type Thread interface {
	UniqueID() string
}

// ID is a thread unique id. It satisfies Thread.
type ID string

// UniqueID returns the id as a string.
func (id ID) UniqueID() string {
	return string(id)
}

// ErrEmptyID is returned when a thread id is blank.
var ErrEmptyID = errors.New("thread id is empty")

// Record is a persisted thread row.
type Record struct {
	UniqueID  string
	CreatedAt uint64
}

// Create inserts a thread row. Creating an existing thread is a no-op.
func Create(tx *store.Tx, c clock.Clock, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	_, err := tx.Exec("create thread", `
		INSERT INTO threads (unique_id, created_at)
		VALUES (?, ?)
		ON CONFLICT(unique_id) DO NOTHING
	`, id, clock.Millis(c.Now()))
	return err
}

// Exists reports whether a thread row exists.
func Exists(tx *store.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM threads WHERE unique_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("thread exists: %w", err)
	}
	return true, nil
}

// Delete removes a thread together with its configuration and verification
// history. Returns a NOT_FOUND store error when the thread does not exist.
func Delete(tx *store.Tx, id string) error {
	result, err := tx.Exec("delete thread", `DELETE FROM threads WHERE unique_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thread: rows affected: %w", err)
	}
	if n == 0 {
		return store.NewNotFoundError("delete thread", fmt.Sprintf("thread %q does not exist", id))
	}
	return nil
}

// List returns all threads ordered by id.
func List(tx *store.Tx) ([]Record, error) {
	rows, err := tx.Query(`
		SELECT unique_id, created_at
		FROM threads
		ORDER BY unique_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.UniqueID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return records, nil
}
