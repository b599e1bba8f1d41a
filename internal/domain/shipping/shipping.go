package shipping

// Config holds the flat-rate shipping fee and the subtotal at which
// shipping becomes free. Both are cents.
type Config struct {
	FreeThresholdCents int64
	FlatRateCents      int64
}

// Cost returns the shipping fee for an order subtotal (after discounts).
func (c Config) Cost(subtotalCents int64) int64 {
	if subtotalCents >= c.FreeThresholdCents {
		return 0
	}
	return c.FlatRateCents
}
