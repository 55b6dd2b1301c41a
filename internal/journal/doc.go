// Package journal persists accepted events to PostgreSQL for audit.
//
// The journal is append-only and write-behind: events are batched in
// memory and flushed on a size threshold or a ticker, and a journal
// outage never blocks or fails event dispatch. Rows carry the event's
// dedup key with ON CONFLICT DO NOTHING, so a replay after reconnect
// does not double-record.
package journal
