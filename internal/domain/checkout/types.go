package checkout

import "souk/internal/domain/coupons"

// LineItem is one entry of the client-submitted cart snapshot. Only the
// references and the quantity are meaningful; any price the client holds
// is ignored.
type LineItem struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type CustomerDetails struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Address  string `json:"address" validate:"required,max=255"`
	City     string `json:"city" validate:"required,max=80"`
}

type Request struct {
	Items      []LineItem      `json:"items" validate:"required,dive"`
	Customer   CustomerDetails `json:"customer_details" validate:"required"`
	CouponCode *string         `json:"coupon_code,omitempty"`
}

// CouponOutcome reports what happened to a submitted coupon code. A
// rejected coupon never blocks checkout; clients surface the reason.
type CouponOutcome struct {
	Code          string         `json:"code"`
	Applied       bool           `json:"applied"`
	Reason        coupons.Reason `json:"reason,omitempty"`
	DiscountCents int64          `json:"discount_cents"`
}

type Result struct {
	OrderID       int64          `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	ShippingCents int64          `json:"shipping_cents"`
	TotalCents    int64          `json:"total_cents"`
	Coupon        *CouponOutcome `json:"coupon,omitempty"`
}
