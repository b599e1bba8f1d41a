package orders

import (
	"context"
	"time"
)

type Order struct {
	ID            int64     `json:"id"`
	UserID        *int64    `json:"user_id,omitempty"` // nil for guest orders
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	CouponCode    *string   `json:"coupon_code,omitempty"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	ShippingCents int64     `json:"shipping_cents"`
	TotalCents    int64     `json:"total_cents"`
	Customer      Customer  `json:"customer"`
	CreatedAt     time.Time `json:"created_at"`
}

// Customer is denormalized onto the order row so later account or address
// edits never change what a placed order shows.
type Customer struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// OrderItem snapshots the product and the price charged at checkout.
// Immutable after creation.
type OrderItem struct {
	ID             int64   `json:"id"`
	OrderID        int64   `json:"order_id"`
	ProductID      *int64  `json:"product_id,omitempty"`
	VariantID      *int64  `json:"variant_id,omitempty"`
	ProductName    string  `json:"product_name"`
	VariantName    *string `json:"variant_name,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
}

// Detailed view: order + items
type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

type Store interface {
	// Create persists the order and its items as one unit. Must be called
	// inside the checkout transaction.
	Create(ctx context.Context, o *Order, items []OrderItem) (*Order, error)

	GetByID(ctx context.Context, id int64) (*Order, error)

	// USER-facing
	ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]Order, int, error)
	GetDetailForUser(ctx context.Context, userID, orderID int64) (*OrderDetail, error)

	// ADMIN-facing
	ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error)
	GetDetail(ctx context.Context, orderID int64) (*OrderDetail, error)
	UpdateStatus(ctx context.Context, orderID int64, status string, opts UpdateStatusOpts) error
}

type UpdateStatusOpts struct {
	CancelledReason *string
}
