package disappearing

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/threadstate/internal/metrics"
	"github.com/roach88/threadstate/internal/outbox"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/thread"
)

// Store reads and writes configurations through store transactions.
//
// The read cache is only consulted by read-only transactions, and a cached
// value is returned only after the row's version has been read in the same
// transaction and matches. Writers outside this Store, including thread
// deletion and other processes, therefore never cause a stale value to be
// served.
type Store struct {
	cache   *cache
	outbox  *outbox.Outbox
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the counters the store updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithOutbox sets the outbox Apply enqueues sync notifications into.
// Without one Apply persists changes but emits nothing.
func WithOutbox(o *outbox.Outbox) Option {
	return func(s *Store) { s.outbox = o }
}

// NewStore creates a configuration store with an LRU read cache of cacheSize
// entries. A cacheSize of zero or less disables caching.
func NewStore(cacheSize int, opts ...Option) (*Store, error) {
	c, err := newCache(cacheSize)
	if err != nil {
		return nil, err
	}
	s := &Store{
		cache:  c,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s, nil
}

// FetchOrBuildDefault returns the thread's configuration, or a default one
// when the thread has never been configured. The default is not persisted.
func (s *Store) FetchOrBuildDefault(tx *store.Tx, t thread.Thread) (Configuration, error) {
	threadID := t.UniqueID()

	if !tx.Writable() {
		if entry, ok := s.cache.get(threadID); ok {
			version, found, err := readVersion(tx, threadID)
			if err != nil {
				return Configuration{}, fmt.Errorf("fetch configuration: %w", err)
			}
			if found && version == entry.version {
				s.metrics.ConfigurationCacheHits.Inc()
				return entry.cfg, nil
			}
			s.metrics.ConfigurationCacheStale.Inc()
			s.cache.remove(threadID)
		}
	}
	s.metrics.ConfigurationCacheMiss.Inc()

	cfg, version, found, err := readConfiguration(tx, threadID)
	if err != nil {
		return Configuration{}, fmt.Errorf("fetch configuration: %w", err)
	}
	if !found {
		return buildDefault(threadID), nil
	}

	// Rows read by a write transaction may still roll back.
	if !tx.Writable() {
		s.cache.add(cfg, version)
	}
	return cfg, nil
}

// HasChanged reports whether candidate's enabled flag or duration differs
// from the stored row for the same thread. A thread without a row is compared
// against the default configuration.
func (s *Store) HasChanged(tx *store.Tx, candidate Configuration) (bool, error) {
	current, _, found, err := readConfiguration(tx, candidate.uniqueID)
	if err != nil {
		return false, fmt.Errorf("has changed: %w", err)
	}
	if !found {
		current = buildDefault(candidate.uniqueID)
	}
	return !candidate.sameSettings(current), nil
}

// Save persists candidate, replacing any stored row for the thread.
// Requires a writable transaction; the thread must exist.
func (s *Store) Save(tx *store.Tx, candidate Configuration) error {
	const op = "save configuration"
	if err := tx.RequireWritable(op); err != nil {
		return err
	}
	if candidate.uniqueID == "" {
		return fmt.Errorf("%s: %w", op, thread.ErrEmptyID)
	}
	if candidate.wasClamped {
		s.metrics.DurationsClamped.Inc()
		s.logger.Debug().
			Str("thread", candidate.uniqueID).
			Uint32("duration_seconds", candidate.durationSeconds).
			Msg("duration clamped to policy maximum")
	}

	s.cache.remove(candidate.uniqueID)
	_, err := tx.Exec(op, `
		INSERT INTO disappearing_configurations (unique_id, enabled, duration_seconds)
		VALUES (?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			enabled = excluded.enabled,
			duration_seconds = excluded.duration_seconds
	`, candidate.uniqueID, candidate.enabled, candidate.durationSeconds)
	if err != nil {
		if store.IsReferentialIntegrity(err) {
			return store.NewReferentialIntegrityError(op, candidate.uniqueID)
		}
		return err
	}

	version, _, err := readVersion(tx, candidate.uniqueID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	saved := load(candidate.uniqueID, candidate.enabled, candidate.durationSeconds)
	tx.AfterCommit(func() { s.cache.add(saved, version) })
	s.metrics.ConfigurationWrites.Inc()
	return nil
}

// Apply saves candidate when it differs from the stored configuration and
// enqueues a sync notification for the change. Returns whether anything was
// written.
func (s *Store) Apply(tx *store.Tx, candidate Configuration) (bool, error) {
	if err := tx.RequireWritable("apply configuration"); err != nil {
		return false, err
	}

	changed, err := s.HasChanged(tx, candidate)
	if err != nil {
		return false, err
	}
	if !changed {
		s.metrics.ConfigurationUnchanged.Inc()
		return false, nil
	}

	if err := s.Save(tx, candidate); err != nil {
		return false, err
	}

	if s.outbox != nil {
		payload := Notification{
			UniqueThreadID:  candidate.uniqueID,
			Enabled:         candidate.enabled,
			DurationSeconds: candidate.durationSeconds,
		}
		if _, err := s.outbox.Enqueue(tx, outbox.KindDisappearingConfiguration, candidate.uniqueID, payload); err != nil {
			return false, fmt.Errorf("apply configuration: %w", err)
		}
		s.metrics.OutboxEnqueued.Inc()
	}

	s.logger.Info().
		Str("thread", candidate.uniqueID).
		Bool("enabled", candidate.enabled).
		Uint32("duration_seconds", candidate.durationSeconds).
		Msg("disappearing messages configuration changed")
	return true, nil
}

// Invalidate drops the cached configuration for a thread, now and once tx
// commits. Stale entries are also detected by version on the next fetch, so
// this only frees the slot early.
func (s *Store) Invalidate(tx *store.Tx, threadID string) {
	s.cache.remove(threadID)
	tx.AfterCommit(func() { s.cache.remove(threadID) })
}

// Notification is the sync payload announcing a configuration change.
type Notification struct {
	UniqueThreadID  string `json:"unique_thread_id"`
	Enabled         bool   `json:"enabled"`
	DurationSeconds uint32 `json:"duration_seconds"`
}

// readConfiguration reads the stored row and its version for a thread. Kept
// unexported so that every caller outside this package goes through
// FetchOrBuildDefault.
func readConfiguration(tx *store.Tx, threadID string) (Configuration, int64, bool, error) {
	var enabled bool
	var seconds uint32
	var version int64
	err := tx.QueryRow(`
		SELECT enabled, duration_seconds, version
		FROM disappearing_configurations
		WHERE unique_id = ?
	`, threadID).Scan(&enabled, &seconds, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return Configuration{}, 0, false, nil
	}
	if err != nil {
		return Configuration{}, 0, false, fmt.Errorf("read configuration %q: %w", threadID, err)
	}
	return load(threadID, enabled, seconds), version, true, nil
}

// readVersion reads only the row version, through the primary key.
func readVersion(tx *store.Tx, threadID string) (int64, bool, error) {
	var version int64
	err := tx.QueryRow(`
		SELECT version FROM disappearing_configurations WHERE unique_id = ?
	`, threadID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read configuration version %q: %w", threadID, err)
	}
	return version, true, nil
}
