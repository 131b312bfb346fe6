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
)

type productDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description,omitempty"`
	Price         string    `bson:"price"`
	StockQuantity int       `bson:"stock_quantity"`
	ImageURLs     []string  `bson:"image_urls,omitempty"`
	ProductType   string    `bson:"product_type,omitempty"`
	GemType       string    `bson:"gem_type,omitempty"`
	Origin        string    `bson:"origin,omitempty"`
	CaratWeight   string    `bson:"carat_weight,omitempty"`
	Color         string    `bson:"color,omitempty"`
	Cut           string    `bson:"cut,omitempty"`
	Clarity       string    `bson:"clarity,omitempty"`
	Treatment     string    `bson:"treatment,omitempty"`
	Certification string    `bson:"certification,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var doc productDoc

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return fromProductDoc(&doc)
}

func (m *mongoProductRepository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		product, err := fromProductDoc(&doc)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

func (m *mongoProductRepository) InsertProduct(ctx context.Context, product *domain.Product) error {
	doc := toProductDoc(product)

	_, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func toProductDoc(p *domain.Product) *productDoc {
	doc := &productDoc{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.String(),
		StockQuantity: p.StockQuantity,
		ImageURLs:     p.ImageURLs,
		ProductType:   p.ProductType,
		GemType:       p.GemType,
		Origin:        p.Origin,
		Color:         p.Color,
		Cut:           p.Cut,
		Clarity:       p.Clarity,
		Treatment:     p.Treatment,
		Certification: p.Certification,
		UpdatedAt:     time.Now(),
	}
	if !p.CaratWeight.IsZero() {
		doc.CaratWeight = p.CaratWeight.String()
	}
	return doc
}

func fromProductDoc(doc *productDoc) (*domain.Product, error) {
	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price for product %s: %w", doc.ID, err)
	}

	carat := decimal.Zero
	if doc.CaratWeight != "" {
		carat, err = decimal.NewFromString(doc.CaratWeight)
		if err != nil {
			return nil, fmt.Errorf("invalid carat weight for product %s: %w", doc.ID, err)
		}
	}

	return &domain.Product{
		ID:            doc.ID,
		Name:          doc.Name,
		Description:   doc.Description,
		Price:         price,
		StockQuantity: doc.StockQuantity,
		ImageURLs:     doc.ImageURLs,
		ProductType:   doc.ProductType,
		GemType:       doc.GemType,
		Origin:        doc.Origin,
		CaratWeight:   carat,
		Color:         doc.Color,
		Cut:           doc.Cut,
		Clarity:       doc.Clarity,
		Treatment:     doc.Treatment,
		Certification: doc.Certification,
	}, nil
}
