package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/warehousehq/ordersync/internal/model"
)

// Type discriminates the closed set of push events.
type Type string

const (
	TypeStatusChange Type = "status_change"
	TypeAssignment   Type = "assignment"
	TypeBulkUpdate   Type = "bulk_update"
)

// Event is one validated push notification describing a change to one or
// more orders. Exactly which fields are populated depends on Type:
//
//   - status_change: OrderID, OldStatus, NewStatus, Order
//   - assignment: OrderID, WorkerID, Order (snapshot optional)
//   - bulk_update: OrderIDs, Detail
type Event struct {
	Type Type

	OrderID   string
	OldStatus model.OrderStatus
	NewStatus model.OrderStatus
	WorkerID  string

	OrderIDs []string // bulk_update only
	Detail   string   // bulk_update free-form description

	Order *model.Order // Full order snapshot when the server provides one

	ServerTS   int64     // Server timestamp (µs since epoch)
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// DedupKey returns the composite key identifying logical duplicates:
// (type, orderId, resulting status, server timestamp). Two genuinely
// distinct transitions that collide on this key within the dedup window
// are indistinguishable from duplicates; that is an accepted approximation.
func (e Event) DedupKey() string {
	if e.Type == TypeBulkUpdate {
		return fmt.Sprintf("%s|%s|%d", e.Type, strings.Join(e.OrderIDs, ","), e.ServerTS)
	}
	return fmt.Sprintf("%s|%s|%s|%d", e.Type, e.OrderID, e.NewStatus, e.ServerTS)
}
