package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Johngardev/Emeraldia/internal/domain"
)

// ProductCatalog is the read side of the catalog. The repository satisfies it
// directly; catalog reads have no business rules worth a service layer.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         string   `json:"price"`
	StockQuantity int      `json:"stock_quantity"`
	ImageURLs     []string `json:"image_urls,omitempty"`
	ProductType   string   `json:"product_type,omitempty"`
	GemType       string   `json:"gem_type,omitempty"`
	Origin        string   `json:"origin,omitempty"`
	CaratWeight   string   `json:"carat_weight,omitempty"`
	Color         string   `json:"color,omitempty"`
	Cut           string   `json:"cut,omitempty"`
	Clarity       string   `json:"clarity,omitempty"`
	Treatment     string   `json:"treatment,omitempty"`
	Certification string   `json:"certification,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func convertProduct(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.StringFixed(2),
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
	}
	if !p.CaratWeight.IsZero() {
		resp.CaratWeight = p.CaratWeight.String()
	}
	return resp
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, convertProduct(p))
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: dtos})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertProduct(product))
}
