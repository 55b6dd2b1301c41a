// Package event defines the closed set of push events and parses raw
// transport frames into it.
//
// Inbound frames are JSON envelopes with a type discriminator:
//
//	{"type":"order_update","data":{"order_id":"ord-1","old_status":"picking","order_status":"packing","order_data":{...},"ts":1705320000}}
//	{"type":"assignment_update","data":{"order_id":"ord-1","worker_id":"w-3","ts":1705320000}}
//	{"type":"bulk_order_update","data":{"order_ids":["ord-1","ord-2"],"detail":"carrier change","ts":1705320000}}
//	{"type":"connection_established","data":{}}
//
// Heartbeats are bare tokens, not JSON: the client sends "heartbeat", the
// server acknowledges with "pong". Anything that fails to parse into one of
// the known variants is malformed and dropped by the caller.
package event
