package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Common errors returned by the store
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

// StockInfo is the fresh stock-and-price reading checkout validates against.
// Name rides along so order lines can snapshot it without a second read.
type StockInfo struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// InventoryStore is the stock-mutation boundary of the checkout pipeline.
// TryDecrementStock must be atomic per product: two concurrent callers must
// never jointly drive the quantity below zero. IncrementStock is the
// compensation path and succeeds whenever the product exists.
type InventoryStore interface {
	GetStockAndPrice(ctx context.Context, productID string) (*StockInfo, error)
	TryDecrementStock(ctx context.Context, productID string, amount int) error
	IncrementStock(ctx context.Context, productID string, amount int) error
}
