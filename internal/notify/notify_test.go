package notify

import (
	"strings"
	"testing"

	"github.com/warehousehq/ordersync/internal/event"
	"github.com/warehousehq/ordersync/internal/model"
)

func TestNotifiable_StatusChange(t *testing.T) {
	tests := []struct {
		name      string
		oldStatus model.OrderStatus
		newStatus model.OrderStatus
		role      model.Role
		want      bool
	}{
		{"work arriving", model.StatusProcessing, model.StatusPicking, model.RolePicker, true},
		{"work leaving", model.StatusPicking, model.StatusPacking, model.RolePicker, true},
		{"unrelated transition", model.StatusPending, model.StatusProcessing, model.RolePicker, false},
		{"driver first status", model.StatusPacking, model.StatusReadyForShipping, model.RoleDriver, true},
		{"driver internal move", model.StatusReadyForShipping, model.StatusShipped, model.RoleDriver, true},
		{"cancel out of role span", model.StatusPicking, model.StatusCancelled, model.RolePicker, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event.Event{
				Type:      event.TypeStatusChange,
				OrderID:   "ord-1",
				OldStatus: tt.oldStatus,
				NewStatus: tt.newStatus,
			}
			if got := Notifiable(ev, tt.role, "w-1"); got != tt.want {
				t.Errorf("Notifiable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotifiable_Assignment(t *testing.T) {
	withSnapshot := event.Event{
		Type:     event.TypeAssignment,
		OrderID:  "ord-1",
		WorkerID: "w-2",
		Order:    &model.Order{ID: "ord-1", Status: model.StatusPicking},
	}
	if !Notifiable(withSnapshot, model.RolePicker, "w-1") {
		t.Error("assignment in role span should be notifiable")
	}
	if Notifiable(withSnapshot, model.RolePacker, "w-1") {
		t.Error("assignment outside role span should not be notifiable")
	}

	noSnapshot := event.Event{Type: event.TypeAssignment, OrderID: "ord-1", WorkerID: "w-1"}
	if !Notifiable(noSnapshot, model.RolePicker, "w-1") {
		t.Error("assignment to current worker should be notifiable without snapshot")
	}
	if Notifiable(noSnapshot, model.RolePicker, "w-9") {
		t.Error("assignment to another worker without snapshot should not be notifiable")
	}
}

func TestNotifiable_BulkNever(t *testing.T) {
	ev := event.Event{Type: event.TypeBulkUpdate, OrderIDs: []string{"a", "b"}}
	if Notifiable(ev, model.RoleManager, "w-1") {
		t.Error("bulk updates should not surface notifications")
	}
}

func TestMessage(t *testing.T) {
	arriving := event.Event{
		Type:      event.TypeStatusChange,
		OrderID:   "101",
		OldStatus: model.StatusProcessing,
		NewStatus: model.StatusPicking,
	}
	if got := Message(arriving, model.RolePicker, "w-1"); !strings.Contains(got, "available to work on") {
		t.Errorf("arriving message = %q", got)
	}

	leaving := event.Event{
		Type:      event.TypeStatusChange,
		OrderID:   "101",
		OldStatus: model.StatusPicking,
		NewStatus: model.StatusPacking,
	}
	if got := Message(leaving, model.RolePicker, "w-1"); !strings.Contains(got, "completed") {
		t.Errorf("leaving message = %q", got)
	}

	toMe := event.Event{Type: event.TypeAssignment, OrderID: "101", WorkerID: "w-1"}
	if got := Message(toMe, model.RolePicker, "w-1"); got != "Order #101 assigned to you" {
		t.Errorf("self assignment message = %q", got)
	}

	toOther := event.Event{Type: event.TypeAssignment, OrderID: "101", WorkerID: "w-2"}
	if got := Message(toOther, model.RolePicker, "w-1"); got != "Order #101 assigned to w-2" {
		t.Errorf("other assignment message = %q", got)
	}
}
