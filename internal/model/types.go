package model

import "encoding/json"

// OrderStatus is a workflow state in the fulfillment sequence.
type OrderStatus string

// Workflow statuses in pipeline order, plus terminal cancellation.
const (
	StatusPending          OrderStatus = "pending"
	StatusProcessing       OrderStatus = "processing"
	StatusPicking          OrderStatus = "picking"
	StatusPacking          OrderStatus = "packing"
	StatusReadyForShipping OrderStatus = "ready_for_shipping"
	StatusShipped          OrderStatus = "shipped"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
)

// Sequence is the ordered fulfillment pipeline. Cancelled sits outside the
// sequence and is reachable from any non-terminal state.
var Sequence = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusPicking,
	StatusPacking,
	StatusReadyForShipping,
	StatusShipped,
	StatusDelivered,
}

// SequencePos returns the position of a status in the pipeline,
// or -1 for cancelled and unknown statuses.
func SequencePos(s OrderStatus) int {
	for i, st := range Sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known workflow status.
func (s OrderStatus) Valid() bool {
	return s == StatusCancelled || SequencePos(s) >= 0
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether moving from one status to the other
// respects the monotonic sequence.
// Cancellation is allowed from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fp, tp := SequencePos(from), SequencePos(to)
	if fp < 0 || tp < 0 {
		return false
	}
	return tp == fp+1
}

// Order is the unit of work flowing through the system.
//
// The sync core interprets only ID, Status and AssignedWorker. Payload
// fields (customer, items, amounts, addresses) are carried through
// untouched for the presentation layer.
type Order struct {
	ID             string      // Stable unique identifier
	Status         OrderStatus // Current workflow state
	AssignedWorker string      // Worker currently responsible ("" = unassigned)

	// Opaque payload
	CustomerName    string
	Items           json.RawMessage
	TotalAmount     string
	ShippingAddress json.RawMessage

	// Timing (µs since epoch)
	CreatedTS int64 // Creation time
	UpdatedAt int64 // Last update
}
