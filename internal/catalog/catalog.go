// Package catalog is the read-only client for the remote product catalog.
//
// The catalog service returns loosely-typed payloads: envelope-or-bare
// responses, products whose id may arrive as "id" or "_id", names as "name"
// or "title", prices as numbers or strings, and frequently missing fields.
// All of that is normalized here, at the collaborator boundary; the rest of
// the codebase only ever sees the strict types below.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/falcon-storefront/internal/cart"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PlaceholderImage substitutes for products the catalog ships without images.
const PlaceholderImage = "/placeholder.svg"

// Product is the strict internal shape of a catalog item.
type Product struct {
	ID          string
	Slug        string
	Name        string
	Price       decimal.Decimal
	Description string
	Category    string
	Images      []string
	Colors      []string
	Sizes       []string
	InStock     bool
}

// Category is a catalog category usable as a product list filter.
type Category struct {
	ID   string
	Slug string
	Name string
}

// ListParams selects a page of the catalog.
type ListParams struct {
	Page     int
	Limit    int
	Category string
}

// CartRequest builds the add-to-cart request for this product with the
// chosen variant. This is the only sanctioned path from catalog data into
// the cart engine.
func (p Product) CartRequest(color, size string, quantity int) cart.AddRequest {
	image := PlaceholderImage
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return cart.AddRequest{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		ImageRef:     image,
		VariantColor: color,
		VariantSize:  size,
		Quantity:     quantity,
	}
}
