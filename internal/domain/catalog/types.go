package catalog

import (
	"context"
	"time"
)

type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description,omitempty"`
	BasePriceCents int64     `json:"base_price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	Stock          int       `json:"stock"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Variant is a product sub-option (size, colour) with an optional price
// override. When PriceCents is set it replaces the product price entirely.
type Variant struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents *int64    `json:"price_cents,omitempty"`
	Stock      int       `json:"stock"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Lightweight “card” for lists
type ProductCard struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description,omitempty"`
	BasePriceCents int64     `json:"base_price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	VariantsCount  int       `json:"variants_count"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type ProductDetail struct {
	Product  *Product   `json:"product"`
	Variants []*Variant `json:"variants"`
}

// Store is the read boundary of the catalog: the authoritative source of
// truth for prices and stock. The sales core never writes through it.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	GetVariantOfProduct(ctx context.Context, productID, variantID int64) (*Variant, error)
	ListProductCards(ctx context.Context, limit, offset int) ([]*ProductCard, int, error)
	GetProductDetailBySlug(ctx context.Context, slug string) (*ProductDetail, error)
}
