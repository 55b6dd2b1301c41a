// Package dedup implements the event Deduplicator.
//
// The transport may redeliver events on reconnect or via multiple origin
// paths. Without suppression the reconciliation engine would double-count
// transitions (e.g. moving an order out of Available twice). Events are
// identified by a composite key of type, order id, resulting status and
// server timestamp; identical keys within the window are dropped.
//
// Two distinct real transitions that collide on the same key within the
// window are indistinguishable from duplicates. This is an accepted
// approximation, not a correctness guarantee.
package dedup
