package carts

import (
	"context"
	"errors"

	"souk/internal/metrics"

	"go.uber.org/zap"
)

// Resilient is the cart persistence adapter. It prefers the durable
// primary backend and degrades to the in-memory fallback when the primary
// fails, so a storage outage never surfaces as a cart error to the caller.
// Fallback state is best-effort and lost on restart.
type Resilient struct {
	primary  Store
	fallback Store
	logger   *zap.SugaredLogger
}

func NewResilient(primary, fallback Store, logger *zap.SugaredLogger) *Resilient {
	return &Resilient{primary: primary, fallback: fallback, logger: logger}
}

func (s *Resilient) degrade(op string, err error) {
	metrics.CartFallbacks.WithLabelValues(op).Inc()
	s.logger.Warnw("cart persistence degraded to fallback", "op", op, "error", err)
}

func (s *Resilient) EnsureActive(ctx context.Context, owner Owner) (int64, error) {
	id, err := s.primary.EnsureActive(ctx, owner)
	if err != nil {
		s.degrade("ensure_active", err)
		return s.fallback.EnsureActive(ctx, owner)
	}
	return id, nil
}

func (s *Resilient) AddItem(ctx context.Context, owner Owner, productID int64, variantID *int64, qty int, displayPriceCents int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.primary.AddItem(ctx, owner, productID, variantID, qty, displayPriceCents); err != nil {
		s.degrade("add_item", err)
		return s.fallback.AddItem(ctx, owner, productID, variantID, qty, displayPriceCents)
	}
	return nil
}

func (s *Resilient) UpdateItemQty(ctx context.Context, owner Owner, itemID int64, qty int) error {
	err := s.primary.UpdateItemQty(ctx, owner, itemID, qty)
	if err == nil || errors.Is(err, ErrItemNotFound) {
		return err
	}
	s.degrade("update_item_qty", err)
	return s.fallback.UpdateItemQty(ctx, owner, itemID, qty)
}

func (s *Resilient) RemoveItem(ctx context.Context, owner Owner, itemID int64) error {
	if err := s.primary.RemoveItem(ctx, owner, itemID); err != nil {
		s.degrade("remove_item", err)
		return s.fallback.RemoveItem(ctx, owner, itemID)
	}
	return nil
}

func (s *Resilient) Clear(ctx context.Context, owner Owner) error {
	if err := s.primary.Clear(ctx, owner); err != nil {
		s.degrade("clear", err)
		return s.fallback.Clear(ctx, owner)
	}
	return nil
}

func (s *Resilient) GetView(ctx context.Context, owner Owner) (*CartView, error) {
	view, err := s.primary.GetView(ctx, owner)
	if err != nil {
		s.degrade("get_view", err)
		return s.fallback.GetView(ctx, owner)
	}
	return view, nil
}
