// Package model defines shared data types used across the order sync engine.
//
// Conventions:
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: string for orders and workers
//   - Payload fields on Order are opaque and carried through untouched
package model
