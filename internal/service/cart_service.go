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
	"golang.org/x/sync/singleflight"
)

// CartLineView is a cart line joined with current catalog data. Prices here
// are advisory; the authoritative snapshot happens at checkout.
type CartLineView struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

type CartView struct {
	ID          string
	UserID      string
	Lines       []CartLineView
	TotalAmount decimal.Decimal
	UpdatedAt   time.Time
}

type CartService struct {
	repo      repository.CartRepository
	cache     cache.CartCache
	inventory store.InventoryStore
	locks     *KeyedMutex
	log       *zap.Logger
	sfg       singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cartCache cache.CartCache,
	inventory store.InventoryStore,
	locks *KeyedMutex,
	log *zap.Logger,
) *CartService {
	return &CartService{
		repo:      repo,
		cache:     cartCache,
		inventory: inventory,
		locks:     locks,
		log:       log,
	}
}

// GetOrCreateCart returns the user's cart, lazily creating an empty one on
// first access. Idempotent: repeated calls return the same cart id.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart, err = s.createCart(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItem merges quantity into an existing line or appends a new one. The
// stock check is a snapshot read; checkout re-validates authoritatively.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.loadCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	info, err := s.inventory.GetStockAndPrice(ctx, productID)
	if err != nil {
		return nil, err
	}

	desired := quantity
	existing := cart.FindItem(productID)
	if existing != nil {
		desired += existing.Quantity
	}
	if desired > info.Quantity {
		return nil, insufficientStock(info.Name, desired, info.Quantity)
	}

	if existing != nil {
		existing.Quantity = desired
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		})
	}

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// SetItemQuantity overwrites a line's quantity; zero removes the line.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.loadCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(productID)
	if item == nil {
		return nil, fmt.Errorf("%w: product %s", ErrItemNotFound, productID)
	}

	if quantity == 0 {
		cart.RemoveItem(productID)
	} else {
		info, err := s.inventory.GetStockAndPrice(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > info.Quantity {
			return nil, insufficientStock(info.Name, quantity, info.Quantity)
		}
		item.Quantity = quantity
	}

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// RemoveItem drops a line entirely.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.loadCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveItem(productID) {
		return nil, fmt.Errorf("%w: product %s", ErrItemNotFound, productID)
	}

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// ClearCart empties all lines unconditionally. The cart itself survives.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*CartView, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.loadCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Items = nil

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// loadCart is the read path: cache first, repository on miss, with
// singleflight so concurrent misses for one user hit Mongo once.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), userID, cart); err != nil {
				s.log.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// loadCartForUpdate reads straight from the repository; mutations must not
// base their read-modify-write on a possibly stale cache entry. Missing carts
// materialize empty, matching the lazy-creation contract.
func (s *CartService) loadCartForUpdate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return s.newCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) createCart(ctx context.Context, userID string) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	// Someone else may have created it while we waited for the lock.
	cart, err := s.repo.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	cart = s.newCart(userID)
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) newCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *CartService) saveCart(ctx context.Context, cart *domain.Cart) error {
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return err
	}
	s.invalidateCache(cart.UserID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// buildView joins cart lines with current catalog data. A line whose product
// vanished from the catalog stays visible with a zero price; checkout will
// reject it properly.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	view := &CartView{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Lines:       make([]CartLineView, 0, len(cart.Items)),
		TotalAmount: decimal.Zero,
		UpdatedAt:   cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		line := CartLineView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: decimal.Zero,
			Subtotal:  decimal.Zero,
		}

		info, err := s.inventory.GetStockAndPrice(ctx, item.ProductID)
		switch {
		case err == nil:
			line.ProductName = info.Name
			line.UnitPrice = info.UnitPrice
			line.Subtotal = info.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		case errors.Is(err, store.ErrProductNotFound):
			s.log.Warn("cart references missing product",
				zap.String("user_id", cart.UserID), zap.String("product_id", item.ProductID))
		default:
			return nil, err
		}

		view.Lines = append(view.Lines, line)
		view.TotalAmount = view.TotalAmount.Add(line.Subtotal)
	}

	return view, nil
}

func insufficientStock(productName string, requested, available int) error {
	return fmt.Errorf("%w for product %q: requested %d, available %d",
		store.ErrInsufficientStock, productName, requested, available)
}
