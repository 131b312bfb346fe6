package store

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Johngardev/Emeraldia/internal/repository"
)

func setupMongoStore(t *testing.T) (*MongoStore, *mongo.Database, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := repository.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return NewMongoStore(db), db, cleanup
}

func seedProduct(t *testing.T, db *mongo.Database, id, name, price string, quantity int) {
	t.Helper()
	_, err := db.Collection("products").InsertOne(context.Background(), bson.M{
		"_id":            id,
		"name":           name,
		"price":          price,
		"stock_quantity": quantity,
	})
	require.NoError(t, err)
}

func TestMongoStore_GetStockAndPrice(t *testing.T) {
	store, db, cleanup := setupMongoStore(t)
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, db, "emerald-1", "Colombian Emerald", "1499.00", 3)

	info, err := store.GetStockAndPrice(ctx, "emerald-1")
	require.NoError(t, err)
	assert.Equal(t, "Colombian Emerald", info.Name)
	assert.Equal(t, 3, info.Quantity)
	assert.True(t, info.UnitPrice.Equal(decimal.RequireFromString("1499.00")))

	_, err = store.GetStockAndPrice(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMongoStore_TryDecrementStock(t *testing.T) {
	store, db, cleanup := setupMongoStore(t)
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, db, "emerald-1", "Emerald", "10.00", 5)

	// Exact boundary is an allowed decrement
	require.NoError(t, store.TryDecrementStock(ctx, "emerald-1", 5))

	info, err := store.GetStockAndPrice(ctx, "emerald-1")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Quantity)

	// Anything further fails without going negative
	err = store.TryDecrementStock(ctx, "emerald-1", 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	info, err = store.GetStockAndPrice(ctx, "emerald-1")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Quantity)
}

func TestMongoStore_TryDecrementStock_Errors(t *testing.T) {
	store, db, cleanup := setupMongoStore(t)
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, db, "emerald-1", "Emerald", "10.00", 5)

	assert.ErrorIs(t, store.TryDecrementStock(ctx, "missing", 1), ErrProductNotFound)
	assert.ErrorIs(t, store.TryDecrementStock(ctx, "emerald-1", 0), ErrInvalidAmount)
	assert.ErrorIs(t, store.TryDecrementStock(ctx, "emerald-1", -2), ErrInvalidAmount)
}

func TestMongoStore_IncrementStock(t *testing.T) {
	store, db, cleanup := setupMongoStore(t)
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, db, "emerald-1", "Emerald", "10.00", 1)

	require.NoError(t, store.IncrementStock(ctx, "emerald-1", 4))

	info, err := store.GetStockAndPrice(ctx, "emerald-1")
	require.NoError(t, err)
	assert.Equal(t, 5, info.Quantity)

	assert.ErrorIs(t, store.IncrementStock(ctx, "missing", 1), ErrProductNotFound)
	assert.ErrorIs(t, store.IncrementStock(ctx, "emerald-1", 0), ErrInvalidAmount)
}

func TestMongoStore_ConcurrentDecrements(t *testing.T) {
	store, db, cleanup := setupMongoStore(t)
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, db, "emerald-1", "Emerald", "10.00", 50)

	// 100 workers race for 50 units; the conditional update must admit
	// exactly 50 of them.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.TryDecrementStock(ctx, "emerald-1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)

	info, err := store.GetStockAndPrice(ctx, "emerald-1")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Quantity)
}
