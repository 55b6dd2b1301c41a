// Package connection implements the shared event transport.
//
// One Manager owns exactly one logical WebSocket session for the whole
// process. It authenticates with a bearer token, keeps the session alive
// with a periodic heartbeat token, reconnects with a fixed delay and a
// bounded retry budget on unexpected closes, and fans validated,
// deduplicated events out to registered listeners on a single dispatch
// goroutine. The session's lifetime is reference-counted by listener
// registrations: the last unregister tears it down.
package connection
