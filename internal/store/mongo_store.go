package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// stockDoc is the slice of the product document this store reads. Price is
// persisted as a string so decimal values survive BSON round trips exactly.
type stockDoc struct {
	ID            string `bson:"_id"`
	Name          string `bson:"name"`
	Price         string `bson:"price"`
	StockQuantity int    `bson:"stock_quantity"`
}

// MongoStore implements InventoryStore on top of the products collection.
// Decrements are a single conditional update, so the non-negativity guard
// holds across concurrent callers without any application-level lock.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("products"),
	}
}

func (s *MongoStore) GetStockAndPrice(ctx context.Context, productID string) (*StockInfo, error) {
	var doc stockDoc

	filter := bson.M{"_id": productID}
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price for product %s: %w", productID, err)
	}

	return &StockInfo{
		ProductID: doc.ID,
		Name:      doc.Name,
		Quantity:  doc.StockQuantity,
		UnitPrice: price,
	}, nil
}

func (s *MongoStore) TryDecrementStock(ctx context.Context, productID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	// Matches only while enough stock remains; the $inc and the guard are one
	// atomic document update on the server.
	filter := bson.M{
		"_id":            productID,
		"stock_quantity": bson.M{"$gte": amount},
	}
	update := bson.M{
		"$inc": bson.M{"stock_quantity": -amount},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// No match: either the product is gone or stock ran out.
	exists, err := s.productExists(ctx, productID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func (s *MongoStore) IncrementStock(ctx context.Context, productID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	filter := bson.M{"_id": productID}
	update := bson.M{
		"$inc": bson.M{"stock_quantity": amount},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *MongoStore) productExists(ctx context.Context, productID string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return count > 0, nil
}
