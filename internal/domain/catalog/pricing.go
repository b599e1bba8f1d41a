package catalog

import "errors"

var ErrProductNotFound = errors.New("product not found")

// ResolvePrice returns the effective unit price in cents for a product and
// an optionally selected variant.
//
// Precedence:
//  1. variant price override, when the variant carries one
//  2. sale price, when set and strictly below the base price
//  3. base price
func ResolvePrice(p *Product, v *Variant) (int64, error) {
	if p == nil {
		return 0, ErrProductNotFound
	}
	if v != nil && v.PriceCents != nil {
		return *v.PriceCents, nil
	}
	if p.SalePriceCents != nil && *p.SalePriceCents < p.BasePriceCents {
		return *p.SalePriceCents, nil
	}
	return p.BasePriceCents, nil
}
