package api

import "encoding/json"

// OrdersResponse from GET /orders
type OrdersResponse struct {
	Orders []APIOrder `json:"orders"`
}

// SingleOrderResponse from PUT /orders/{id}/status and POST /orders/{id}/assign
type SingleOrderResponse struct {
	Order APIOrder `json:"order"`
}

// APIOrder represents an order record from the warehouse backend.
type APIOrder struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"order_status"`
	AssignedWorker string `json:"assigned_worker"`

	// Payload (opaque to the sync core)
	CustomerName    string          `json:"customer_name"`
	Items           json.RawMessage `json:"items"`
	TotalAmount     string          `json:"total_amount"`
	ShippingAddress json.RawMessage `json:"shipping_address"`

	// Timestamps (ISO 8601)
	CreatedTime string `json:"created_at"`
	UpdatedTime string `json:"updated_at"`
}

// AssignRequest is the body for POST /orders/{id}/assign.
type AssignRequest struct {
	WorkerID string `json:"worker_id"`
}
