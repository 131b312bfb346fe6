package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Johngardev/Emeraldia/internal/domain"
	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/store"
	"go.uber.org/zap"
)

// OrderService owns post-creation order lifecycle: user-scoped reads and the
// status machine, including stock compensation on cancellation.
type OrderService struct {
	orders    repository.OrderRepository
	inventory store.InventoryStore
	log       *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, inventory store.InventoryStore, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		log:       log,
	}
}

// GetOrder returns an order only to its owning user.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	return s.orders.GetOrderForUser(ctx, orderID, userID)
}

// ListOrders returns the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUser(ctx, userID)
}

// UpdateStatus is the single entry point for status transitions. Moving into
// CANCELLED restores stock for every line; restoration failures are retried
// once per line, logged, and escalated rather than silently dropped.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
	}

	err = s.orders.UpdateStatus(ctx, orderID, order.Status, newStatus)
	if errors.Is(err, repository.ErrStatusConflict) {
		// Lost a race against another transition; report against the
		// status that actually won.
		current, getErr := s.orders.GetOrderByID(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, newStatus)
	}
	if err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = newStatus
	order.UpdatedAt = time.Now()

	s.log.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", previous.String()),
		zap.String("to", newStatus.String()))

	if newStatus == domain.OrderStatusCancelled {
		if err := s.restoreStock(ctx, order); err != nil {
			// The order is cancelled; the drift is what gets escalated.
			return nil, fmt.Errorf("%w: %w", ErrStockRestoreFailed, err)
		}
	}

	return order, nil
}

// restoreStock compensates every line of a cancelled order. Each line gets a
// second attempt; lines that still fail are collected so none of them is
// lost, and the remaining lines are restored regardless.
func (s *OrderService) restoreStock(ctx context.Context, order *domain.Order) error {
	var failed error
	for _, item := range order.Items {
		err := s.inventory.IncrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			err = s.inventory.IncrementStock(ctx, item.ProductID, item.Quantity)
		}
		if err != nil {
			s.log.Error("stock restoration failed for cancelled order line",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			failed = errors.Join(failed, fmt.Errorf("product %s: %w", item.ProductID, err))
		}
	}
	return failed
}
