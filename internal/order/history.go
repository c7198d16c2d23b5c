package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bakery-storefront/internal/remote"
)

// ErrOrderNotFound is returned when the remote has no order with the given id
var ErrOrderNotFound = errors.New("order not found")

// HistoryRemote is the remote order collection
type HistoryRemote interface {
	ListOrders(ctx context.Context) ([]remote.Order, error)
	GetOrder(ctx context.Context, id int64) (*remote.Order, error)
	CreateOrder(ctx context.Context, payload json.RawMessage) (*remote.Order, error)
	UpdateOrder(ctx context.Context, id int64, payload json.RawMessage) (*remote.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// History exposes the remote order collection to admin views
type History struct {
	remote HistoryRemote
	logger *zap.Logger
}

// NewHistory creates a new order history service
func NewHistory(r HistoryRemote, logger *zap.Logger) *History {
	return &History{remote: r, logger: logger}
}

// List returns every remote order
func (h *History) List(ctx context.Context) ([]remote.Order, error) {
	orders, err := h.remote.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get returns one remote order
func (h *History) Get(ctx context.Context, id int64) (*remote.Order, error) {
	o, err := h.remote.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// Create posts an order document as-is
func (h *History) Create(ctx context.Context, payload json.RawMessage) (*remote.Order, error) {
	o, err := h.remote.CreateOrder(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	h.logger.Info("Order created through admin")
	return o, nil
}

// Update replaces an order document
func (h *History) Update(ctx context.Context, id int64, payload json.RawMessage) (*remote.Order, error) {
	o, err := h.remote.UpdateOrder(ctx, id, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	return o, nil
}

// Delete removes an order
func (h *History) Delete(ctx context.Context, id int64) error {
	if err := h.remote.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	h.logger.Info("Order deleted through admin", zap.Int64("order_id", id))
	return nil
}
