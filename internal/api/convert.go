package api

import (
	"time"

	"github.com/warehousehq/ordersync/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp to microseconds since epoch.
// Returns 0 for empty or invalid input.
func ParseTimestamp(iso string) int64 {
	if iso == "" {
		return 0
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return 0
		}
	}

	return t.UnixMicro()
}

// NowMicro returns the current time in microseconds since epoch.
func NowMicro() int64 {
	return time.Now().UnixMicro()
}

// ToModel converts an APIOrder to model.Order.
func (o *APIOrder) ToModel() model.Order {
	return model.Order{
		ID:              o.OrderID,
		Status:          model.OrderStatus(o.Status),
		AssignedWorker:  o.AssignedWorker,
		CustomerName:    o.CustomerName,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		CreatedTS:       ParseTimestamp(o.CreatedTime),
		UpdatedAt:       ParseTimestamp(o.UpdatedTime),
	}
}
