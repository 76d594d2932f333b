package verification

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roach88/threadstate/internal/clock"
	"github.com/roach88/threadstate/internal/identity"
	"github.com/roach88/threadstate/internal/metrics"
	"github.com/roach88/threadstate/internal/outbox"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/thread"
)

// SortSequence is the store counter events draw sort ids from. It is shared
// with every other kind of thread interaction.
const SortSequence = "interaction_sort_id"

// AuditLog appends and reads verification events.
type AuditLog struct {
	clock   clock.Clock
	outbox  *outbox.Outbox
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Option configures an AuditLog.
type Option func(*AuditLog)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *AuditLog) { a.logger = logger }
}

// WithMetrics sets the counters the log updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *AuditLog) { a.metrics = m }
}

// WithOutbox sets the outbox local changes are announced through.
func WithOutbox(o *outbox.Outbox) Option {
	return func(a *AuditLog) { a.outbox = o }
}

// New creates an audit log stamping events with c.
func New(c clock.Clock, opts ...Option) *AuditLog {
	a := &AuditLog{
		clock:  c,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}
	return a
}

// Notification is the sync payload announcing a local verification change.
type Notification struct {
	UniqueThreadID   string           `json:"unique_thread_id"`
	EventID          string           `json:"event_id"`
	RecipientAddress identity.Address `json:"recipient_address"`
	State            State            `json:"verification_state"`
}

// Record appends one event for recipient in t. Requires a writable
// transaction; fails with a REFERENTIAL_INTEGRITY error when the thread does
// not exist. Both timestamps are the clock's current time.
func (a *AuditLog) Record(tx *store.Tx, t thread.Thread, recipient identity.Address, state State, isLocalChange bool) (Event, error) {
	const op = "record verification"
	if err := tx.RequireWritable(op); err != nil {
		return Event{}, err
	}
	if !state.IsValid() {
		return Event{}, fmt.Errorf("%s: invalid state %d", op, int(state))
	}
	if !recipient.IsValid() {
		return Event{}, fmt.Errorf("%s: %w", op, identity.ErrInvalidAddress)
	}

	threadID := t.UniqueID()
	exists, err := thread.Exists(tx, threadID)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return Event{}, store.NewReferentialIntegrityError(op, threadID)
	}

	sortID, err := tx.NextSequence(SortSequence)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, fmt.Errorf("%s: generate id: %w", op, err)
	}

	now := clock.Millis(a.clock.Now())
	event := Event{
		UniqueID:            id.String(),
		UniqueThreadID:      threadID,
		SortID:              sortID,
		Timestamp:           now,
		ReceivedAtTimestamp: now,
		RecipientAddress:    recipient,
		State:               state,
		IsLocalChange:       isLocalChange,
	}

	_, err = tx.Exec(op, `
		INSERT INTO verification_events (
			unique_id, unique_thread_id, sort_id, timestamp, received_at_timestamp,
			recipient_service_id, recipient_phone_number, verification_state, is_local_change
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.UniqueID, event.UniqueThreadID, event.SortID, event.Timestamp, event.ReceivedAtTimestamp,
		recipient.ServiceIDString(), recipient.PhoneNumber, int(state), isLocalChange)
	if err != nil {
		if store.IsReferentialIntegrity(err) {
			return Event{}, store.NewReferentialIntegrityError(op, threadID)
		}
		return Event{}, err
	}

	if isLocalChange && a.outbox != nil {
		payload := Notification{
			UniqueThreadID:   threadID,
			EventID:          event.UniqueID,
			RecipientAddress: recipient,
			State:            state,
		}
		if _, err := a.outbox.Enqueue(tx, outbox.KindVerificationState, threadID, payload); err != nil {
			return Event{}, fmt.Errorf("%s: %w", op, err)
		}
		a.metrics.OutboxEnqueued.Inc()
	}

	a.metrics.VerificationEvents.WithLabelValues(state.String()).Inc()
	a.logger.Info().
		Str("thread", threadID).
		Str("recipient", recipient.String()).
		Stringer("state", state).
		Bool("local", isLocalChange).
		Uint64("sort_id", sortID).
		Msg("verification state recorded")
	return event, nil
}

const selectEvents = `
	SELECT unique_id, unique_thread_id, sort_id, timestamp, received_at_timestamp,
		recipient_service_id, recipient_phone_number, verification_state, is_local_change
	FROM verification_events
`

// ListForThread returns a thread's events in sort id order.
// Returns an empty slice (not nil) when the thread has none.
func (a *AuditLog) ListForThread(tx *store.Tx, threadID string) ([]Event, error) {
	rows, err := tx.Query(selectEvents+`
		WHERE unique_thread_id = ?
		ORDER BY sort_id ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list verification events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification events: %w", err)
	}
	return events, nil
}

// LatestForRecipient returns the most recent event in a thread for the
// participant, if any. Participants match by service id when both sides have
// one, otherwise by phone number.
func (a *AuditLog) LatestForRecipient(tx *store.Tx, threadID string, recipient identity.Address) (Event, bool, error) {
	serviceID := recipient.ServiceIDString()
	row := tx.QueryRow(selectEvents+`
		WHERE unique_thread_id = ?1
		  AND (
			(?2 != '' AND recipient_service_id = ?2)
			OR ((?2 = '' OR recipient_service_id = '') AND ?3 != '' AND recipient_phone_number = ?3)
		  )
		ORDER BY sort_id DESC
		LIMIT 1
	`, threadID, serviceID, recipient.PhoneNumber)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, err
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (Event, error) {
	var e Event
	var serviceID, phone string
	var state int
	err := s.Scan(&e.UniqueID, &e.UniqueThreadID, &e.SortID, &e.Timestamp, &e.ReceivedAtTimestamp,
		&serviceID, &phone, &state, &e.IsLocalChange)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, err
	}
	if err != nil {
		return Event{}, fmt.Errorf("scan verification event: %w", err)
	}

	addr, err := identity.FromStored(serviceID, phone)
	if err != nil {
		return Event{}, fmt.Errorf("verification event %s: %w", e.UniqueID, err)
	}
	e.RecipientAddress = addr
	e.State = State(state)
	return e, nil
}
