package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/warehousehq/ordersync/internal/model"
)

// GetOrders fetches the full order listing for the given statuses.
// This is the authoritative snapshot used by the reconciliation engine.
func (c *Client) GetOrders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	query := url.Values{}
	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		query.Set("status", strings.Join(strs, ","))
	}

	var resp OrdersResponse
	if err := c.get(ctx, "/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	orders := make([]model.Order, len(resp.Orders))
	for i := range resp.Orders {
		orders[i] = resp.Orders[i].ToModel()
	}
	return orders, nil
}

// UpdateOrderStatus advances an order to a new status on behalf of a worker.
// The response echoes the updated order.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus, workerID string) (model.Order, error) {
	query := url.Values{}
	query.Set("new_status", string(newStatus))
	if workerID != "" {
		query.Set("worker_id", workerID)
	}

	var resp SingleOrderResponse
	if err := c.put(ctx, "/orders/"+orderID+"/status", query, nil, &resp); err != nil {
		return model.Order{}, fmt.Errorf("update order %s status: %w", orderID, err)
	}

	return resp.Order.ToModel(), nil
}

// AssignOrder assigns a worker to an order without changing its status.
func (c *Client) AssignOrder(ctx context.Context, orderID, workerID string) (model.Order, error) {
	var resp SingleOrderResponse
	if err := c.post(ctx, "/orders/"+orderID+"/assign", nil, AssignRequest{WorkerID: workerID}, &resp); err != nil {
		return model.Order{}, fmt.Errorf("assign order %s: %w", orderID, err)
	}

	return resp.Order.ToModel(), nil
}
