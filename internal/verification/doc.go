// Package verification keeps the append-only audit log of identity
// verification state changes.
//
// Every change is one Event, recorded inside a write transaction. Events get
// a sort id from the store-scoped interaction sequence, so their order inside
// a thread is the order they were recorded, never their timestamps. Events are
// never updated or coalesced; callers that want to suppress repeated states
// check LatestForRecipient first.
package verification
