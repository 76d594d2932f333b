// Package disappearing manages the per-thread disappearing-message
// configuration.
//
// A Configuration is an immutable value. Values may sit in the read cache and
// be observed by several callers at once, so nothing ever changes one in
// place: the Copy* methods return new values and the receiver is left as it
// was.
//
// Store.FetchOrBuildDefault is the only way to obtain a thread's
// configuration. A thread that was never configured yields a default value
// that is not persisted until a caller saves it.
//
// Store.HasChanged decides whether a candidate differs from what is stored.
// It always reads inside the caller's transaction and never consults the
// cache, because a cached value may be older than the transaction's view.
//
// The read cache keeps each configuration with the row version it was read
// at. Read transactions serve a cached value only when the stored version
// still matches, so deletions and writes made elsewhere are always seen.
package disappearing
