package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

type stockEntry struct {
	name     string
	quantity int
	price    decimal.Decimal
}

// MemoryStore implements InventoryStore with in-memory storage. The single
// mutex gives the same per-product atomicity the Mongo conditional update
// provides in production.
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[string]*stockEntry
}

// NewMemoryStore creates a new in-memory inventory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks: make(map[string]*stockEntry),
	}
}

// SetStock sets the stock level and price for a product (used for initialization)
func (s *MemoryStore) SetStock(productID, name string, quantity int, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks[productID] = &stockEntry{
		name:     name,
		quantity: quantity,
		price:    price,
	}
}

func (s *MemoryStore) GetStockAndPrice(_ context.Context, productID string) (*StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.stocks[productID]
	if !exists {
		return nil, ErrProductNotFound
	}

	return &StockInfo{
		ProductID: productID,
		Name:      entry.name,
		Quantity:  entry.quantity,
		UnitPrice: entry.price,
	}, nil
}

func (s *MemoryStore) TryDecrementStock(_ context.Context, productID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}
	if entry.quantity < amount {
		return ErrInsufficientStock
	}

	entry.quantity -= amount
	return nil
}

func (s *MemoryStore) IncrementStock(_ context.Context, productID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}

	entry.quantity += amount
	return nil
}
