package coupons

import "time"

// Reason identifies why a coupon was not applied. Reasons are
// machine-readable; checkout reports them instead of failing the order.
type Reason string

const (
	ReasonNotFound          Reason = "coupon_not_found"
	ReasonInactive          Reason = "coupon_inactive"
	ReasonExpired           Reason = "coupon_expired"
	ReasonMinimumNotMet     Reason = "minimum_not_met"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
)

type Result struct {
	Valid         bool   `json:"valid"`
	DiscountCents int64  `json:"discount_cents"`
	Reason        Reason `json:"reason,omitempty"`
}

// Evaluate validates a coupon against an order subtotal. Checks
// short-circuit in a fixed order: existence, active flag, expiry, minimum
// order value, usage cap. Pure; the usage cap it sees is advisory, the
// authoritative check is ConsumeUsage inside the checkout transaction.
func Evaluate(c *Coupon, subtotalCents int64, now time.Time) Result {
	if c == nil {
		return Result{Reason: ReasonNotFound}
	}
	if !c.IsActive {
		return Result{Reason: ReasonInactive}
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return Result{Reason: ReasonExpired}
	}
	if c.MinOrderCents != nil && subtotalCents < *c.MinOrderCents {
		return Result{Reason: ReasonMinimumNotMet}
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return Result{Reason: ReasonUsageLimitReached}
	}

	return Result{Valid: true, DiscountCents: discount(c, subtotalCents)}
}

func discount(c *Coupon, subtotalCents int64) int64 {
	var d int64
	switch c.Type {
	case DiscountPercentage:
		d = subtotalCents * c.Value / 100
	case DiscountFixed:
		d = c.Value
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
