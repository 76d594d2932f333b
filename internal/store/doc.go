// Package store provides SQLite-backed transactional storage for per-thread
// conversation state.
//
// The store holds:
//   - Threads: the owning conversation rows every other table references
//   - Disappearing configurations: one row per thread, upserted
//   - Verification events: append-only audit records ordered by sort_id
//   - Sync outbox: pending sync notifications
//
// # Transactions
//
// Every access goes through Store.Read or Store.Write. Handles are tagged
// read-only or read-write; writes through a read-only handle fail immediately
// with a TX_MISUSE error. After-commit hooks let callers publish state (for
// example into a read cache) only once it is durable.
//
// # Ordering
//
// sort_id values come from the sequences table, a counter scoped to the whole
// store rather than to a thread. Ordering never uses timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
