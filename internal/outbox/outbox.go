// Package outbox stores sync notifications that must be delivered to linked
// devices. Notifications are enqueued in the same transaction as the state
// change they announce, so a committed change always has its notification.
package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/threadstate/internal/clock"
	"github.com/roach88/threadstate/internal/store"
)

// Kind names the state a notification announces.
type Kind string

const (
	// KindDisappearingConfiguration announces a changed expiration configuration.
	KindDisappearingConfiguration Kind = "disappearing_configuration"

	// KindVerificationState announces a locally made verification change.
	KindVerificationState Kind = "verification_state"
)

// Notification is a pending sync message. Payload is opaque to the outbox.
type Notification struct {
	Seq            int64           `json:"seq"`
	Kind           Kind            `json:"kind"`
	UniqueThreadID string          `json:"unique_thread_id"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      uint64          `json:"created_at"`
}

// Outbox enqueues and drains notifications.
type Outbox struct {
	clock clock.Clock
}

// New creates an outbox stamping notifications with c.
func New(c clock.Clock) *Outbox {
	return &Outbox{clock: c}
}

// Enqueue appends a notification carrying payload marshaled as JSON.
// Requires a writable transaction.
func (o *Outbox) Enqueue(tx *store.Tx, kind Kind, threadID string, payload any) (int64, error) {
	if err := tx.RequireWritable("enqueue notification"); err != nil {
		return 0, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("enqueue notification: marshal payload: %w", err)
	}

	result, err := tx.Exec("enqueue notification", `
		INSERT INTO sync_outbox (kind, unique_thread_id, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, string(kind), threadID, string(data), clock.Millis(o.clock.Now()))
	if err != nil {
		return 0, err
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue notification: last insert id: %w", err)
	}
	return seq, nil
}

// Pending returns unsent notifications ordered by seq.
// Returns an empty slice (not nil) when nothing is pending.
func (o *Outbox) Pending(tx *store.Tx) ([]Notification, error) {
	rows, err := tx.Query(`
		SELECT seq, kind, unique_thread_id, payload, created_at
		FROM sync_outbox
		WHERE sent_at IS NULL
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var kind, payload string
		if err := rows.Scan(&n.Seq, &kind, &n.UniqueThreadID, &payload, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = Kind(kind)
		n.Payload = json.RawMessage(payload)
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}

	if notifications == nil {
		notifications = []Notification{}
	}

	return notifications, nil
}

// MarkSent records that the notification with seq was delivered.
// Returns a NOT_FOUND store error if seq is unknown or already sent.
func (o *Outbox) MarkSent(tx *store.Tx, seq int64) error {
	result, err := tx.Exec("mark notification sent", `
		UPDATE sync_outbox SET sent_at = ?
		WHERE seq = ? AND sent_at IS NULL
	`, clock.Millis(o.clock.Now()), seq)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification sent: rows affected: %w", err)
	}
	if n == 0 {
		return store.NewNotFoundError("mark notification sent", fmt.Sprintf("no pending notification %d", seq))
	}
	return nil
}
