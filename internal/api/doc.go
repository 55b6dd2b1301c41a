// Package api provides the REST client for the warehouse backend.
//
// The backend is the authoritative source of order state. The sync engine
// uses it for full snapshots (GetOrders) and status/assignment mutations;
// incremental updates arrive over the event transport instead.
package api
