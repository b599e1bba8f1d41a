package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"souk/internal/domain/carts"
	"souk/internal/domain/catalog"
	"souk/internal/domain/coupons"
	"souk/internal/domain/orders"
	"souk/internal/domain/shipping"
	"souk/internal/domain/storage"
	"souk/internal/metrics"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNoValidItems = errors.New("no valid items in cart")
)

// TxRunner is the transactional boundary the orchestrator runs inside.
// *storage.Container satisfies it; tests substitute a fake whose SalesTx
// carries in-memory repos.
type TxRunner interface {
	WithSalesTx(ctx context.Context, fn func(s *storage.SalesTx) error) error
}

// Notifier fires post-checkout side effects. Implementations must return
// without blocking; delivery failures are their own problem, never the
// checkout's.
type Notifier interface {
	OrderPlaced(detail *orders.OrderDetail)
}

type NopNotifier struct{}

func (NopNotifier) OrderPlaced(*orders.OrderDetail) {}

// Service recomputes an order from the system of record and commits it
// atomically. Client-submitted prices never enter the computation.
type Service struct {
	store    TxRunner
	shipping shipping.Config
	notifier Notifier
	logger   *zap.SugaredLogger
}

func NewService(store TxRunner, ship shipping.Config, notifier Notifier, logger *zap.SugaredLogger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{store: store, shipping: ship, notifier: notifier, logger: logger}
}

// Checkout turns a client-held cart snapshot into a persisted order.
//
// Inside one transaction: every line is re-resolved against the catalog
// (lines whose product is gone are dropped, not fatal), prices are
// recomputed fresh, a submitted coupon is evaluated and its usage consumed
// with the capacity check in the same statement, shipping is derived from
// the discounted subtotal, and the order plus its items are inserted.
// Either all of it commits or none of it does.
func (s *Service) Checkout(ctx context.Context, owner carts.Owner, req Request) (*Result, error) {
	items := mergeLines(req.Items)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		result Result
		detail *orders.OrderDetail
	)

	err := s.store.WithSalesTx(ctx, func(tx *storage.SalesTx) error {
		var (
			orderItems []orders.OrderItem
			subtotal   int64
			dropped    int
		)

		for _, line := range items {
			product, err := tx.Catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					dropped++
					continue
				}
				return fmt.Errorf("resolve product %d: %w", line.ProductID, err)
			}

			var variant *catalog.Variant
			if line.VariantID != nil {
				variant, err = tx.Catalog.GetVariantOfProduct(ctx, product.ID, *line.VariantID)
				if err != nil {
					if errors.Is(err, catalog.ErrProductNotFound) {
						dropped++
						continue
					}
					return fmt.Errorf("resolve variant %d: %w", *line.VariantID, err)
				}
			}

			unit, err := catalog.ResolvePrice(product, variant)
			if err != nil {
				return err
			}

			item := orders.OrderItem{
				ProductID:      &product.ID,
				ProductName:    product.Name,
				Quantity:       line.Quantity,
				UnitPriceCents: unit,
				TotalCents:     int64(line.Quantity) * unit,
			}
			if variant != nil {
				item.VariantID = &variant.ID
				item.VariantName = &variant.Name
			}

			orderItems = append(orderItems, item)
			subtotal += item.TotalCents
		}

		if len(orderItems) == 0 {
			if dropped > 0 {
				return ErrNoValidItems
			}
			return ErrEmptyCart
		}

		discount := int64(0)
		var couponOut *CouponOutcome
		var couponCode *string

		if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
			out, err := s.applyCoupon(ctx, tx, *req.CouponCode, subtotal)
			if err != nil {
				return err
			}
			couponOut = out
			if out.Applied {
				discount = out.DiscountCents
				couponCode = &out.Code
			}
		}

		shippingCost := s.shipping.Cost(subtotal - discount)

		o := &orders.Order{
			UserID:        owner.UserID,
			Status:        "pending",
			CouponCode:    couponCode,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			ShippingCents: shippingCost,
			TotalCents:    subtotal - discount + shippingCost,
			Customer: orders.Customer{
				FullName: req.Customer.FullName,
				Email:    req.Customer.Email,
				Phone:    req.Customer.Phone,
				Address:  req.Customer.Address,
				City:     req.Customer.City,
			},
		}

		o, err := tx.Orders.Create(ctx, o, orderItems)
		if err != nil {
			return err
		}

		// The cart backing the snapshot is spent once the order exists.
		if owner.Valid() {
			if err := tx.Carts.Clear(ctx, owner); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}

		result = Result{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			SubtotalCents: o.SubtotalCents,
			DiscountCents: o.DiscountCents,
			ShippingCents: o.ShippingCents,
			TotalCents:    o.TotalCents,
			Coupon:        couponOut,
		}
		detail = &orders.OrderDetail{Order: *o, Items: orderItems}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersPlaced.Inc()

	// Side effects run after the commit; the Notifier contract keeps them
	// off the request path.
	s.notifier.OrderPlaced(detail)

	return &result, nil
}

// applyCoupon evaluates the code against the recomputed subtotal and, when
// valid, consumes one usage slot. The guarded UPDATE in ConsumeUsage is the
// authoritative capacity check: two concurrent checkouts racing on the last
// slot serialize on the row, and the loser degrades to "no discount" with
// the usage-limit reason rather than failing the order.
func (s *Service) applyCoupon(ctx context.Context, tx *storage.SalesTx, rawCode string, subtotal int64) (*CouponOutcome, error) {
	code := coupons.Normalize(rawCode)
	out := &CouponOutcome{Code: code}

	c, err := tx.Coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	res := coupons.Evaluate(c, subtotal, time.Now())
	if res.Valid {
		ok, err := tx.Coupons.ConsumeUsage(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			res = coupons.Result{Reason: coupons.ReasonUsageLimitReached}
		}
	}

	if !res.Valid {
		out.Reason = res.Reason
		metrics.CouponRejections.WithLabelValues(string(res.Reason)).Inc()
		s.logger.Infow("coupon not applied", "code", code, "reason", res.Reason)
		return out, nil
	}

	out.Applied = true
	out.DiscountCents = res.DiscountCents
	return out, nil
}

// mergeLines collapses duplicate (product, variant) pairs and discards
// non-positive quantities, mirroring the cart's own invariant. A snapshot
// is untrusted input; it gets the same normalization a cart enforces.
func mergeLines(in []LineItem) []LineItem {
	var out []LineItem
	for _, line := range in {
		if line.Quantity <= 0 {
			continue
		}
		merged := false
		for i := range out {
			if out[i].ProductID == line.ProductID && sameRef(out[i].VariantID, line.VariantID) {
				out[i].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, line)
		}
	}
	return out
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
