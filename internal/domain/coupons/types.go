package coupons

import (
	"context"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            int64        `json:"id"`
	Code          string       `json:"code"`
	Type          DiscountType `json:"type"`
	Value         int64        `json:"value"` // percent (0–100) or cents, by type
	MinOrderCents *int64       `json:"min_order_cents,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	IsActive      bool         `json:"is_active"`
	UsageCount    int          `json:"usage_count"`
	UsageLimit    *int         `json:"usage_limit,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type Store interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// ConsumeUsage increments usage_count iff capacity remains. Must run in
	// the same transaction as order creation.
	ConsumeUsage(ctx context.Context, code string) (bool, error)

	// Admin
	Create(ctx context.Context, c *Coupon) (*Coupon, error)
	List(ctx context.Context, limit, offset int) ([]*Coupon, int, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
