package domain

import "github.com/shopspring/decimal"

// Product is the catalog view of a sellable item. Stock and price are the
// only fields the checkout pipeline mutates or snapshots; the gemstone
// attributes exist for catalog browsing and are optional.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURLs     []string

	// Gemstone-specific attributes (nil/empty when not applicable, e.g. lots)
	ProductType   string // SINGLE_EMERALD, GEMSTONE_LOT, OTHER_GEMSTONE
	GemType       string
	Origin        string
	CaratWeight   decimal.Decimal
	Color         string
	Cut           string
	Clarity       string
	Treatment     string
	Certification string
}
