package coupons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int       { return &v }
func centsp(v int64) *int64 { return &v }

func TestEvaluateValidationOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal int64
		reason   Reason
	}{
		{
			name:   "nil coupon is not found",
			reason: ReasonNotFound,
		},
		{
			// inactive wins over expiry: checks run in a fixed order
			name:   "inactive",
			coupon: &Coupon{IsActive: false, ExpiresAt: &past},
			reason: ReasonInactive,
		},
		{
			name:   "expired",
			coupon: &Coupon{IsActive: true, ExpiresAt: &past},
			reason: ReasonExpired,
		},
		{
			name:     "minimum not met",
			coupon:   &Coupon{IsActive: true, ExpiresAt: &future, MinOrderCents: centsp(2000)},
			subtotal: 1999,
			reason:   ReasonMinimumNotMet,
		},
		{
			name:     "usage limit reached",
			coupon:   &Coupon{IsActive: true, UsageCount: 5, UsageLimit: intp(5)},
			subtotal: 10_000,
			reason:   ReasonUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.coupon, tt.subtotal, now)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Zero(t, res.DiscountCents)
		})
	}
}

func TestEvaluateUsageCapAlwaysRejects(t *testing.T) {
	// At the cap the coupon is rejected regardless of subtotal or expiry.
	now := time.Now()
	future := now.Add(time.Hour)
	c := &Coupon{IsActive: true, ExpiresAt: &future, UsageCount: 1, UsageLimit: intp(1)}

	for _, subtotal := range []int64{0, 100, 1_000_000} {
		res := Evaluate(c, subtotal, now)
		assert.False(t, res.Valid)
		assert.Equal(t, ReasonUsageLimitReached, res.Reason)
	}
}

func TestEvaluateDiscounts(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal int64
		want     int64
	}{
		{
			name:     "percentage",
			coupon:   &Coupon{IsActive: true, Type: DiscountPercentage, Value: 10, MinOrderCents: centsp(1000)},
			subtotal: 1600,
			want:     160,
		},
		{
			name:     "percentage clamps at subtotal",
			coupon:   &Coupon{IsActive: true, Type: DiscountPercentage, Value: 100},
			subtotal: 500,
			want:     500,
		},
		{
			name:     "fixed below subtotal",
			coupon:   &Coupon{IsActive: true, Type: DiscountFixed, Value: 300},
			subtotal: 1600,
			want:     300,
		},
		{
			name:     "fixed clamps at subtotal",
			coupon:   &Coupon{IsActive: true, Type: DiscountFixed, Value: 2000},
			subtotal: 1600,
			want:     1600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.coupon, tt.subtotal, now)
			assert.True(t, res.Valid)
			assert.Equal(t, tt.want, res.DiscountCents)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE10", Normalize("  save10 "))
	assert.Equal(t, "SAVE10", Normalize("Save10"))
}
