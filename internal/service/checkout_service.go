package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Johngardev/Emeraldia/internal/cache"
	"github.com/Johngardev/Emeraldia/internal/domain"
	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutRequest struct {
	UserID          string
	ShippingAddress string
	// BillingAddress defaults to ShippingAddress when empty
	BillingAddress string
}

// CheckoutService converts a cart into an order: validate every line against
// fresh stock, reserve all lines or none, snapshot prices, persist the order,
// clear the cart. Stock decrements that cannot be followed by a persisted
// order are compensated before the error is surfaced.
type CheckoutService struct {
	carts     repository.CartRepository
	orders    repository.OrderRepository
	inventory store.InventoryStore
	cache     cache.CartCache
	locks     *KeyedMutex
	log       *zap.Logger
}

func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	inventory store.InventoryStore,
	cartCache cache.CartCache,
	locks *KeyedMutex,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		inventory: inventory,
		cache:     cartCache,
		locks:     locks,
		log:       log,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if req.ShippingAddress == "" {
		return nil, ErrMissingAddress
	}
	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}

	// Shares the cart lock with CartService so the cart cannot mutate
	// between validation and the post-order clear.
	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	cart, err := s.carts.GetCart(ctx, req.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// One retry: a decrement can lose a race against a checkout that
	// succeeded between our validation read and the conditional update.
	// After the retry the conflict surfaces as insufficient stock.
	var readings []*store.StockInfo
	var reserveErr error
	for attempt := 0; attempt < 2; attempt++ {
		infos, err := s.validate(ctx, cart.Items)
		if err != nil {
			return nil, err
		}

		reserveErr = s.reserve(ctx, cart.Items)
		if reserveErr == nil {
			readings = infos
			break
		}
		if !errors.Is(reserveErr, store.ErrInsufficientStock) {
			return nil, reserveErr
		}
		s.log.Info("checkout lost reservation race, retrying",
			zap.String("user_id", req.UserID), zap.Int("attempt", attempt+1))
	}
	if readings == nil {
		return nil, reserveErr
	}

	order := s.buildOrder(req.UserID, cart.Items, readings, req.ShippingAddress, billing)

	if err := s.orders.InsertOrder(ctx, order); err != nil {
		// The stock is held but the order never materialized; hand it back.
		if rbErr := s.rollback(ctx, cart.Items); rbErr != nil {
			return nil, fmt.Errorf("%w: after order persistence failure: %w", ErrStockRestoreFailed, rbErr)
		}
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.clearCart(ctx, cart)

	s.log.Info("checkout completed",
		zap.String("user_id", req.UserID),
		zap.String("order_id", order.ID),
		zap.String("total", order.TotalAmount.String()),
		zap.Int("lines", len(order.Items)))

	return order, nil
}

// validate re-reads stock and price for every line, in cart insertion order,
// before anything mutates. Fails on the first product that is gone or short.
func (s *CheckoutService) validate(ctx context.Context, items []domain.CartItem) ([]*store.StockInfo, error) {
	infos := make([]*store.StockInfo, len(items))
	for i, item := range items {
		info, err := s.inventory.GetStockAndPrice(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: product %s", store.ErrProductNotFound, item.ProductID)
			}
			return nil, err
		}
		if item.Quantity > info.Quantity {
			return nil, insufficientStock(info.Name, item.Quantity, info.Quantity)
		}
		infos[i] = info
	}
	return infos, nil
}

// reserve decrements stock for every line, all-or-nothing. A failed line
// rolls back every decrement this call already applied.
func (s *CheckoutService) reserve(ctx context.Context, items []domain.CartItem) error {
	for i, item := range items {
		err := s.inventory.TryDecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		if rbErr := s.rollback(ctx, items[:i]); rbErr != nil {
			return fmt.Errorf("%w: while undoing a failed reservation: %w", ErrStockRestoreFailed, rbErr)
		}
		return fmt.Errorf("reserving product %s: %w", item.ProductID, err)
	}
	return nil
}

// rollback compensates decrements already applied. Every line is attempted
// even if an earlier one fails; failures are joined and escalated, since a
// missed increment means stock drift.
func (s *CheckoutService) rollback(ctx context.Context, items []domain.CartItem) error {
	var failed error
	for _, item := range items {
		if err := s.inventory.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("stock rollback failed",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			failed = errors.Join(failed, fmt.Errorf("product %s: %w", item.ProductID, err))
		}
	}
	return failed
}

func (s *CheckoutService) buildOrder(
	userID string,
	items []domain.CartItem,
	readings []*store.StockInfo,
	shipping, billing string,
) *domain.Order {
	now := time.Now()
	orderItems := make([]domain.OrderItem, len(items))
	total := decimal.Zero

	for i, item := range items {
		// Snapshot name and price from the validation read, never re-fetched:
		// the buyer pays exactly what was validated.
		orderItems[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: readings[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   readings[i].UnitPrice,
		}
		total = total.Add(orderItems[i].Subtotal())
	}

	return &domain.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           orderItems,
		TotalAmount:     total,
		Status:          domain.OrderStatusPending,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// clearCart empties the cart after the order is safely persisted. The order
// is already durable here, so a failed clear is retried and then reported
// rather than undone.
func (s *CheckoutService) clearCart(ctx context.Context, cart *domain.Cart) {
	cart.Items = nil

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.carts.UpsertCart(ctx, cart); err == nil {
			break
		}
	}
	if err != nil {
		s.log.Error("failed to clear cart after checkout",
			zap.String("user_id", cart.UserID), zap.Error(err))
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(cacheCtx, cart.UserID); err != nil {
		s.log.Warn("cart cache invalidate failed",
			zap.String("user_id", cart.UserID), zap.Error(err))
	}
}
