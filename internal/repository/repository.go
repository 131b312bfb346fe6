package repository

import (
	"context"
	"errors"

	"github.com/Johngardev/Emeraldia/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// ErrStatusConflict means a conditional status update matched nothing:
	// the order is gone or its status moved underneath the caller.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
}

// OrderRepository persists immutable orders; only the status field is ever
// updated after insert, and only conditionally on the expected current value.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderForUser(ctx context.Context, id, userID string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

// ProductRepository is the catalog read model plus the seeding write path.
// Stock mutation does not go through here; that is the inventory store's job.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	InsertProduct(ctx context.Context, product *domain.Product) error
}
