package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Johngardev/Emeraldia/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Monetary values live as strings in BSON so snapshots survive round trips
// without float drift; the mapping happens only here.
type orderItemDoc struct {
	ProductID   string `bson:"product_id"`
	ProductName string `bson:"product_name"`
	Quantity    int    `bson:"quantity"`
	UnitPrice   string `bson:"unit_price"`
}

type orderDoc struct {
	ID              string         `bson:"_id"`
	UserID          string         `bson:"user_id"`
	Items           []orderItemDoc `bson:"items"`
	TotalAmount     string         `bson:"total_amount"`
	Status          string         `bson:"status"`
	ShippingAddress string         `bson:"shipping_address"`
	BillingAddress  string         `bson:"billing_address"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) InsertOrder(ctx context.Context, order *domain.Order) error {
	doc := toOrderDoc(order)

	_, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoOrderRepository) GetOrderForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (m *mongoOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		order, err := fromOrderDoc(&doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus flips the status only if it still equals from, so two admins
// racing on the same order cannot both win.
func (m *mongoOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	filter := bson.M{"_id": id, "status": string(from)}
	update := bson.M{"$set": bson.M{
		"status":     string(to),
		"updated_at": time.Now(),
	}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDoc

	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return fromOrderDoc(&doc)
}

func toOrderDoc(order *domain.Order) *orderDoc {
	items := make([]orderItemDoc, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDoc{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
		}
	}

	return &orderDoc{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           items,
		TotalAmount:     order.TotalAmount.String(),
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func fromOrderDoc(doc *orderDoc) (*domain.Order, error) {
	items := make([]domain.OrderItem, len(doc.Items))
	for i, item := range doc.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid stored unit price on order %s: %w", doc.ID, err)
		}
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		}
	}

	total, err := decimal.NewFromString(doc.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored total on order %s: %w", doc.ID, err)
	}

	return &domain.Order{
		ID:              doc.ID,
		UserID:          doc.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          domain.OrderStatus(doc.Status),
		ShippingAddress: doc.ShippingAddress,
		BillingAddress:  doc.BillingAddress,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}
