package service

import (
	"context"
	"sync"

	"github.com/Johngardev/Emeraldia/internal/cache"
	"github.com/Johngardev/Emeraldia/internal/domain"
	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/store"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

type fakeCartRepo struct {
	mu        sync.RWMutex
	carts     map[string]*domain.Cart // keyed by user id
	getErr    error
	upsertErr error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[string]*domain.Cart)}
}

func (f *fakeCartRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	cart, ok := f.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

func (f *fakeCartRepo) UpsertCart(_ context.Context, cart *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.carts[cart.UserID] = cloneCart(cart)
	return nil
}

func (f *fakeCartRepo) storedCart(userID string) *domain.Cart {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneCart(f.carts[userID])
}

func cloneCart(cart *domain.Cart) *domain.Cart {
	if cart == nil {
		return nil
	}
	clone := *cart
	clone.Items = append([]domain.CartItem(nil), cart.Items...)
	return &clone
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	insertErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) InsertOrder(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.orders[order.ID] = cloneOrder(order)
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (f *fakeOrderRepo) GetOrderForUser(_ context.Context, id, userID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (f *fakeOrderRepo) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []*domain.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	return orders, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return repository.ErrStatusConflict
	}
	order.Status = to
	return nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	if order == nil {
		return nil
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	return &clone
}

// noopCache always misses; service tests exercise caching separately through
// the cache package's own miniredis tests.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Cart, error) {
	return nil, cache.ErrCacheMiss
}
func (noopCache) Set(context.Context, string, *domain.Cart) error { return nil }
func (noopCache) Delete(context.Context, string) error            { return nil }

// hookedInventory wraps a real store and lets tests inject failures at exact
// call counts, for racing-decrement and broken-compensation scenarios.
type hookedInventory struct {
	inner store.InventoryStore

	mu       sync.Mutex
	decCalls int
	incCalls int
	decHook  func(call int, productID string, amount int) error
	incHook  func(call int, productID string, amount int) error
}

func (h *hookedInventory) GetStockAndPrice(ctx context.Context, productID string) (*store.StockInfo, error) {
	return h.inner.GetStockAndPrice(ctx, productID)
}

func (h *hookedInventory) TryDecrementStock(ctx context.Context, productID string, amount int) error {
	h.mu.Lock()
	h.decCalls++
	call := h.decCalls
	hook := h.decHook
	h.mu.Unlock()

	if hook != nil {
		if err := hook(call, productID, amount); err != nil {
			return err
		}
	}
	return h.inner.TryDecrementStock(ctx, productID, amount)
}

func (h *hookedInventory) IncrementStock(ctx context.Context, productID string, amount int) error {
	h.mu.Lock()
	h.incCalls++
	call := h.incCalls
	hook := h.incHook
	h.mu.Unlock()

	if hook != nil {
		if err := hook(call, productID, amount); err != nil {
			return err
		}
	}
	return h.inner.IncrementStock(ctx, productID, amount)
}
