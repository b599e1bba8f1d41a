package carts

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be a positive integer")
	ErrItemNotFound           = errors.New("cart item not found")
	ErrPersistenceUnavailable = errors.New("cart persistence unavailable")
)

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous guest token. Exactly one side is set.
type Owner struct {
	UserID     *int64
	GuestToken *string
}

func UserOwner(id int64) Owner      { return Owner{UserID: &id} }
func GuestOwner(token string) Owner { return Owner{GuestToken: &token} }

func (o Owner) Authenticated() bool { return o.UserID != nil }

func (o Owner) Valid() bool {
	return o.UserID != nil || (o.GuestToken != nil && *o.GuestToken != "")
}

// Key renders a stable map key for in-memory storage.
func (o Owner) Key() string {
	if o.UserID != nil {
		return "u:" + strconv.FormatInt(*o.UserID, 10)
	}
	if o.GuestToken != nil {
		return "g:" + *o.GuestToken
	}
	return ""
}

type Cart struct {
	ID         int64      `json:"id"`
	UserID     *int64     `json:"user_id,omitempty"`
	GuestToken *string    `json:"guest_token,omitempty"`
	Status     string     `json:"status"` // active, converted, abandoned
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartLine is one priced line of a cart view. DisplayPriceCents is the
// denormalized price captured at add time; UnitPriceCents is re-resolved
// on every read and is the one the subtotal uses.
type CartLine struct {
	ItemID            int64   `json:"item_id"`
	ProductID         int64   `json:"product_id"`
	VariantID         *int64  `json:"variant_id,omitempty"`
	ProductName       string  `json:"product_name"`
	VariantName       *string `json:"variant_name,omitempty"`
	Quantity          int     `json:"quantity"`
	DisplayPriceCents int64   `json:"display_price_cents"`
	UnitPriceCents    int64   `json:"unit_price_cents"`
	LineTotalCents    int64   `json:"line_total_cents"`
}

type CartView struct {
	Cart          Cart       `json:"cart"`
	Items         []CartLine `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
}

// Store covers the user-facing cart flows. Admin/housekeeping operations
// live on the postgres Repository only.
type Store interface {
	EnsureActive(ctx context.Context, owner Owner) (int64, error)
	AddItem(ctx context.Context, owner Owner, productID int64, variantID *int64, qty int, displayPriceCents int64) error
	UpdateItemQty(ctx context.Context, owner Owner, itemID int64, qty int) error
	RemoveItem(ctx context.Context, owner Owner, itemID int64) error
	Clear(ctx context.Context, owner Owner) error
	GetView(ctx context.Context, owner Owner) (*CartView, error)
}
