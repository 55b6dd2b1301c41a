// Package notify decides which events deserve a user-facing notification
// for a given role, and renders the message text. Filtering and message
// generation are pure; delivery (toast, persistent log) is the caller's
// concern and both are driven off the same filter output.
package notify

import (
	"fmt"
	"time"

	"github.com/warehousehq/ordersync/internal/event"
	"github.com/warehousehq/ordersync/internal/model"
)

// Notification is one rendered, role-scoped message.
type Notification struct {
	OrderID string
	Message string
	At      time.Time
}

// Notifiable reports whether ev should surface a notification for the
// given role and worker.
//
// A status change matters when work arrives (new status actionable by the
// role) or leaves (old status was). An assignment matters to roles that
// could act on the order's current status; when the frame carries no order
// snapshot the status is unknown, so only assignments to the current
// worker are surfaced.
func Notifiable(ev event.Event, role model.Role, workerID string) bool {
	switch ev.Type {
	case event.TypeStatusChange:
		return model.ActionableBy(role, ev.NewStatus) || model.ActionableBy(role, ev.OldStatus)
	case event.TypeAssignment:
		if ev.Order != nil {
			return model.ActionableBy(role, ev.Order.Status)
		}
		return ev.WorkerID == workerID
	default:
		return false
	}
}

// Message renders the notification text for ev from the given worker's
// perspective. Call only for events Notifiable returned true for.
func Message(ev event.Event, role model.Role, workerID string) string {
	switch ev.Type {
	case event.TypeAssignment:
		if ev.WorkerID == workerID {
			return fmt.Sprintf("Order #%s assigned to you", ev.OrderID)
		}
		return fmt.Sprintf("Order #%s assigned to %s", ev.OrderID, ev.WorkerID)

	case event.TypeStatusChange:
		if model.ActionableBy(role, ev.NewStatus) {
			return fmt.Sprintf("Order #%s is now %s, available to work on", ev.OrderID, ev.NewStatus)
		}
		if model.ActionableBy(role, ev.OldStatus) {
			return fmt.Sprintf("Order #%s completed, moved to %s", ev.OrderID, ev.NewStatus)
		}
		return fmt.Sprintf("Order #%s is now %s", ev.OrderID, ev.NewStatus)
	}
	return ""
}

// For builds the Notification for ev, timestamped at its receive time.
func For(ev event.Event, role model.Role, workerID string) Notification {
	return Notification{
		OrderID: ev.OrderID,
		Message: Message(ev, role, workerID),
		At:      ev.ReceivedAt,
	}
}
