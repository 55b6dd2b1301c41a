// Package engine maintains the per-role order queues.
//
// One Engine serves one (role, worker) view. It loads an authoritative
// snapshot over REST, then folds live push events into three ordered
// queues (available, working, history). Events that race the snapshot
// are buffered and replayed in arrival order. A bulk update or a manual
// Refresh triggers a wholesale resync; a failed resync preserves the
// held queues and surfaces the error separately, so a transient backend
// outage never blanks a live view.
package engine
