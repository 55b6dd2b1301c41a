package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warehousehq/ordersync/internal/model"
)

// Wire frame types emitted by the event transport.
const (
	wireConnectionEstablished = "connection_established"
	wireOrderUpdate           = "order_update"
	wireAssignmentUpdate      = "assignment_update"
	wireBulkOrderUpdate       = "bulk_order_update"
)

// HeartbeatToken is the bare outbound liveness token.
const HeartbeatToken = "heartbeat"

// heartbeatAck is the server's bare liveness acknowledgment.
const heartbeatAck = "pong"

// envelope is the outer structure of every structured frame.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// orderUpdateWire is the data payload of an order_update frame.
type orderUpdateWire struct {
	OrderID     string          `json:"order_id"`
	OldStatus   string          `json:"old_status"`
	OrderStatus string          `json:"order_status"`
	OrderData   json.RawMessage `json:"order_data"`
	TS          int64           `json:"ts"` // Unix timestamp (seconds)
}

// assignmentWire is the data payload of an assignment_update frame.
type assignmentWire struct {
	OrderID   string          `json:"order_id"`
	WorkerID  string          `json:"worker_id"`
	OrderData json.RawMessage `json:"order_data"`
	TS        int64           `json:"ts"`
}

// bulkWire is the data payload of a bulk_order_update frame.
type bulkWire struct {
	OrderIDs []string `json:"order_ids"`
	Detail   string   `json:"detail"`
	TS       int64    `json:"ts"`
}

// orderWire mirrors the backend's order record shape inside order_data.
type orderWire struct {
	OrderID         string          `json:"order_id"`
	Status          string          `json:"order_status"`
	AssignedWorker  string          `json:"assigned_worker"`
	CustomerName    string          `json:"customer_name"`
	Items           json.RawMessage `json:"items"`
	TotalAmount     string          `json:"total_amount"`
	ShippingAddress json.RawMessage `json:"shipping_address"`
	CreatedTime     string          `json:"created_at"`
	UpdatedTime     string          `json:"updated_at"`
}

// IsHeartbeatAck reports whether data is the server's bare liveness token.
func IsHeartbeatAck(data []byte) bool {
	return string(bytes.TrimSpace(data)) == heartbeatAck
}

// Parse validates a raw frame into an Event.
//
// control is true for frames that are consumed by the connection layer and
// never forwarded (heartbeat acks, connection_established). A non-nil error
// means the frame is malformed; callers drop it with a log, never a panic.
func Parse(data []byte, receivedAt time.Time) (ev Event, control bool, err error) {
	if IsHeartbeatAck(data) {
		return Event{}, true, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, false, fmt.Errorf("parse frame envelope: %w", err)
	}

	switch env.Type {
	case wireConnectionEstablished:
		return Event{}, true, nil

	case wireOrderUpdate:
		return parseOrderUpdate(env.Data, receivedAt)

	case wireAssignmentUpdate:
		return parseAssignment(env.Data, receivedAt)

	case wireBulkOrderUpdate:
		return parseBulk(env.Data, receivedAt)

	default:
		return Event{}, false, fmt.Errorf("unknown frame type %q", env.Type)
	}
}

func parseOrderUpdate(data []byte, receivedAt time.Time) (Event, bool, error) {
	var wire orderUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, false, fmt.Errorf("parse order_update: %w", err)
	}
	if wire.OrderID == "" {
		return Event{}, false, fmt.Errorf("order_update missing order_id")
	}
	newStatus := model.OrderStatus(wire.OrderStatus)
	if !newStatus.Valid() {
		return Event{}, false, fmt.Errorf("order_update has unknown status %q", wire.OrderStatus)
	}

	ev := Event{
		Type:       TypeStatusChange,
		OrderID:    wire.OrderID,
		OldStatus:  model.OrderStatus(wire.OldStatus),
		NewStatus:  newStatus,
		ServerTS:   wire.TS * 1_000_000, // seconds to microseconds
		ReceivedAt: receivedAt,
	}
	ev.Order = parseOrderData(wire.OrderData)
	if ev.Order != nil {
		// The envelope fields win over a stale embedded snapshot.
		ev.Order.ID = wire.OrderID
		ev.Order.Status = newStatus
	}
	return ev, false, nil
}

func parseAssignment(data []byte, receivedAt time.Time) (Event, bool, error) {
	var wire assignmentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, false, fmt.Errorf("parse assignment_update: %w", err)
	}
	if wire.OrderID == "" || wire.WorkerID == "" {
		return Event{}, false, fmt.Errorf("assignment_update missing order_id or worker_id")
	}

	ev := Event{
		Type:       TypeAssignment,
		OrderID:    wire.OrderID,
		WorkerID:   wire.WorkerID,
		ServerTS:   wire.TS * 1_000_000,
		ReceivedAt: receivedAt,
	}
	ev.Order = parseOrderData(wire.OrderData)
	if ev.Order != nil {
		ev.Order.ID = wire.OrderID
		ev.Order.AssignedWorker = wire.WorkerID
	}
	return ev, false, nil
}

func parseBulk(data []byte, receivedAt time.Time) (Event, bool, error) {
	var wire bulkWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, false, fmt.Errorf("parse bulk_order_update: %w", err)
	}
	if len(wire.OrderIDs) == 0 {
		return Event{}, false, fmt.Errorf("bulk_order_update has no order_ids")
	}

	return Event{
		Type:       TypeBulkUpdate,
		OrderIDs:   wire.OrderIDs,
		Detail:     wire.Detail,
		ServerTS:   wire.TS * 1_000_000,
		ReceivedAt: receivedAt,
	}, false, nil
}

// parseOrderData decodes an optional embedded order snapshot.
// Returns nil when absent or unusable; the event is still valid without it.
func parseOrderData(data json.RawMessage) *model.Order {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var wire orderWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil
	}
	if wire.OrderID == "" {
		return nil
	}
	return &model.Order{
		ID:              wire.OrderID,
		Status:          model.OrderStatus(wire.Status),
		AssignedWorker:  wire.AssignedWorker,
		CustomerName:    wire.CustomerName,
		Items:           wire.Items,
		TotalAmount:     wire.TotalAmount,
		ShippingAddress: wire.ShippingAddress,
		CreatedTS:       parseTimestamp(wire.CreatedTime),
		UpdatedAt:       parseTimestamp(wire.UpdatedTime),
	}
}

func parseTimestamp(iso string) int64 {
	if iso == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return 0
	}
	return t.UnixMicro()
}
