package event

import (
	"testing"
	"time"

	"github.com/warehousehq/ordersync/internal/model"
)

func TestParse_OrderUpdate(t *testing.T) {
	data := []byte(`{
		"type": "order_update",
		"data": {
			"order_id": "ord-101",
			"old_status": "picking",
			"order_status": "packing",
			"order_data": {
				"order_id": "ord-101",
				"order_status": "packing",
				"assigned_worker": "w-1",
				"customer_name": "ACME Corp"
			},
			"ts": 1705320000
		}
	}`)

	now := time.Now()
	ev, control, err := Parse(data, now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if control {
		t.Fatal("order_update should not be a control frame")
	}

	if ev.Type != TypeStatusChange {
		t.Errorf("Type = %s, want status_change", ev.Type)
	}
	if ev.OrderID != "ord-101" {
		t.Errorf("OrderID = %q, want ord-101", ev.OrderID)
	}
	if ev.OldStatus != model.StatusPicking || ev.NewStatus != model.StatusPacking {
		t.Errorf("statuses = %s -> %s, want picking -> packing", ev.OldStatus, ev.NewStatus)
	}
	if ev.ServerTS != 1705320000000000 {
		t.Errorf("ServerTS = %d, want 1705320000000000", ev.ServerTS)
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Error("ReceivedAt not propagated")
	}
	if ev.Order == nil {
		t.Fatal("Order snapshot should be parsed")
	}
	if ev.Order.AssignedWorker != "w-1" {
		t.Errorf("Order.AssignedWorker = %q, want w-1", ev.Order.AssignedWorker)
	}
	if ev.Order.Status != model.StatusPacking {
		t.Errorf("Order.Status = %s, want packing", ev.Order.Status)
	}
}

func TestParse_OrderUpdate_EnvelopeWinsOverSnapshot(t *testing.T) {
	// Embedded snapshot carries a stale status; the envelope is authoritative.
	data := []byte(`{
		"type": "order_update",
		"data": {
			"order_id": "ord-101",
			"old_status": "picking",
			"order_status": "packing",
			"order_data": {"order_id": "ord-101", "order_status": "picking"},
			"ts": 1705320000
		}
	}`)

	ev, _, err := Parse(data, time.Now())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ev.Order.Status != model.StatusPacking {
		t.Errorf("Order.Status = %s, want envelope status packing", ev.Order.Status)
	}
}

func TestParse_Assignment(t *testing.T) {
	data := []byte(`{
		"type": "assignment_update",
		"data": {"order_id": "ord-101", "worker_id": "w-1", "ts": 1705320001}
	}`)

	ev, control, err := Parse(data, time.Now())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if control {
		t.Fatal("assignment_update should not be a control frame")
	}
	if ev.Type != TypeAssignment {
		t.Errorf("Type = %s, want assignment", ev.Type)
	}
	if ev.WorkerID != "w-1" {
		t.Errorf("WorkerID = %q, want w-1", ev.WorkerID)
	}
	if ev.Order != nil {
		t.Error("Order should be nil when order_data is absent")
	}
}

func TestParse_BulkUpdate(t *testing.T) {
	data := []byte(`{
		"type": "bulk_order_update",
		"data": {"order_ids": ["ord-1", "ord-2"], "detail": "carrier change", "ts": 1705320002}
	}`)

	ev, _, err := Parse(data, time.Now())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ev.Type != TypeBulkUpdate {
		t.Errorf("Type = %s, want bulk_update", ev.Type)
	}
	if len(ev.OrderIDs) != 2 {
		t.Errorf("OrderIDs = %v, want 2 entries", ev.OrderIDs)
	}
	if ev.Detail != "carrier change" {
		t.Errorf("Detail = %q", ev.Detail)
	}
}

func TestParse_ControlFrames(t *testing.T) {
	for _, data := range []string{
		`pong`,
		` pong `,
		`{"type": "connection_established", "data": {}}`,
	} {
		_, control, err := Parse([]byte(data), time.Now())
		if err != nil {
			t.Errorf("Parse(%q) error: %v", data, err)
		}
		if !control {
			t.Errorf("Parse(%q) should be a control frame", data)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		`not json at all`,
		`{"type": "order_update", "data": {"order_status": "packing"}}`,          // missing order_id
		`{"type": "order_update", "data": {"order_id": "x", "order_status": "warp_speed"}}`, // unknown status
		`{"type": "assignment_update", "data": {"order_id": "x"}}`,               // missing worker_id
		`{"type": "bulk_order_update", "data": {"order_ids": []}}`,               // empty ids
		`{"type": "price_update", "data": {}}`,                                   // unknown type
	}

	for _, data := range tests {
		if _, _, err := Parse([]byte(data), time.Now()); err == nil {
			t.Errorf("Parse(%q) should fail", data)
		}
	}
}

func TestDedupKey(t *testing.T) {
	a := Event{Type: TypeStatusChange, OrderID: "ord-1", NewStatus: model.StatusPacking, ServerTS: 100}
	b := Event{Type: TypeStatusChange, OrderID: "ord-1", NewStatus: model.StatusPacking, ServerTS: 100}
	c := Event{Type: TypeStatusChange, OrderID: "ord-1", NewStatus: model.StatusPacking, ServerTS: 101}

	if a.DedupKey() != b.DedupKey() {
		t.Error("identical events should share a key")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Error("different timestamps should produce different keys")
	}

	bulk := Event{Type: TypeBulkUpdate, OrderIDs: []string{"ord-1", "ord-2"}, ServerTS: 100}
	if bulk.DedupKey() == a.DedupKey() {
		t.Error("bulk key should differ from status_change key")
	}
}

func TestIsHeartbeatAck(t *testing.T) {
	if !IsHeartbeatAck([]byte("pong")) {
		t.Error("pong should be a heartbeat ack")
	}
	if IsHeartbeatAck([]byte(`{"type":"order_update"}`)) {
		t.Error("JSON frame is not a heartbeat ack")
	}
}
