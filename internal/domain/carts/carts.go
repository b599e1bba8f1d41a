package carts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"souk/internal/domain/catalog"
	"souk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db  dbx.Querier
	ttl time.Duration
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q, ttl: 7 * 24 * time.Hour}
}

func NewRepositoryWithTTL(q dbx.Querier, ttl time.Duration) *Repository {
	return &Repository{db: q, ttl: ttl}
}

func (r *Repository) bumpTTL(ctx context.Context, cartID int64) {
	_, _ = r.db.Exec(ctx, `
UPDATE carts
SET expires_at = $2,
    updated_at = now()
WHERE id = $1
  AND status = 'active'
`, cartID, time.Now().Add(r.ttl))
}

// EnsureActive returns the owner's open cart id, creating one when none
// exists. One active cart per owner (unique partial index on user_id and
// guest_token where status='active').
func (r *Repository) EnsureActive(ctx context.Context, owner Owner) (int64, error) {
	if !owner.Valid() {
		return 0, fmt.Errorf("cart owner is empty")
	}

	var id int64
	err := r.db.QueryRow(ctx, `
SELECT id
FROM carts
WHERE ((user_id = $1 AND $1 IS NOT NULL) OR (guest_token = $2 AND $2 IS NOT NULL))
  AND status = 'active'
  AND (expires_at IS NULL OR expires_at > now())
LIMIT 1
`, owner.UserID, owner.GuestToken).Scan(&id)

	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("get active cart: %w", err)
	}

	exp := time.Now().Add(r.ttl)
	if err := r.db.QueryRow(ctx, `
INSERT INTO carts (user_id, guest_token, status, expires_at)
VALUES ($1, $2, 'active', $3)
RETURNING id
`, owner.UserID, owner.GuestToken, exp).Scan(&id); err != nil {
		return 0, fmt.Errorf("create cart: %w", err)
	}

	return id, nil
}

// AddItem upserts a line item: an existing (product, variant) pair gains
// quantity and gets its display price refreshed, anything else is appended.
func (r *Repository) AddItem(ctx context.Context, owner Owner, productID int64, variantID *int64, qty int, displayPriceCents int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	cartID, err := r.EnsureActive(ctx, owner)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, display_price_cents)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, product_id, COALESCE(variant_id, 0))
DO UPDATE SET
  quantity            = cart_items.quantity + EXCLUDED.quantity,
  display_price_cents = EXCLUDED.display_price_cents,
  updated_at          = now()
`, cartID, productID, variantID, qty, displayPriceCents)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	r.bumpTTL(ctx, cartID)
	return nil
}

// UpdateItemQty sets a line's quantity; a non-positive quantity removes the
// line instead.
func (r *Repository) UpdateItemQty(ctx context.Context, owner Owner, itemID int64, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, owner, itemID)
	}

	var cartID int64
	err := r.db.QueryRow(ctx, `
UPDATE cart_items ci
SET quantity = $3,
    updated_at = now()
WHERE ci.id = $2
  AND ci.cart_id = (
    SELECT id
    FROM carts
    WHERE ((user_id = $1 AND $1 IS NOT NULL) OR (guest_token = $4 AND $4 IS NOT NULL))
      AND status = 'active'
      AND (expires_at IS NULL OR expires_at > now())
    LIMIT 1
  )
RETURNING ci.cart_id
`, owner.UserID, itemID, qty, owner.GuestToken).Scan(&cartID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("update qty: %w", err)
	}

	r.bumpTTL(ctx, cartID)
	return nil
}

// RemoveItem deletes a line item. Removing an absent item is a no-op.
func (r *Repository) RemoveItem(ctx context.Context, owner Owner, itemID int64) error {
	_, err := r.db.Exec(ctx, `
DELETE FROM cart_items
WHERE id = $2
  AND cart_id = (
    SELECT id
    FROM carts
    WHERE ((user_id = $1 AND $1 IS NOT NULL) OR (guest_token = $3 AND $3 IS NOT NULL))
      AND status = 'active'
      AND (expires_at IS NULL OR expires_at > now())
    LIMIT 1
  )
`, owner.UserID, itemID, owner.GuestToken)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, owner Owner) error {
	_, err := r.db.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = (
  SELECT id
  FROM carts
  WHERE ((user_id = $1 AND $1 IS NOT NULL) OR (guest_token = $2 AND $2 IS NOT NULL))
    AND status = 'active'
    AND (expires_at IS NULL OR expires_at > now())
  LIMIT 1
)`, owner.UserID, owner.GuestToken)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetView returns the owner's open cart with lines priced live: unit
// prices come from the catalog on every call, never from the display price
// captured at add time.
func (r *Repository) GetView(ctx context.Context, owner Owner) (*CartView, error) {
	var v CartView
	err := r.db.QueryRow(ctx, `
SELECT id, user_id, guest_token, status, expires_at, created_at, updated_at
FROM carts
WHERE ((user_id = $1 AND $1 IS NOT NULL) OR (guest_token = $2 AND $2 IS NOT NULL))
  AND status = 'active'
  AND (expires_at IS NULL OR expires_at > now())
LIMIT 1
`, owner.UserID, owner.GuestToken).Scan(
		&v.Cart.ID, &v.Cart.UserID, &v.Cart.GuestToken, &v.Cart.Status,
		&v.Cart.ExpiresAt, &v.Cart.CreatedAt, &v.Cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return r.fillLines(ctx, &v)
}

func (r *Repository) GetViewByCartID(ctx context.Context, cartID int64) (*CartView, error) {
	var v CartView
	if err := r.db.QueryRow(ctx, `
SELECT id, user_id, guest_token, status, expires_at, created_at, updated_at
FROM carts
WHERE id = $1
`, cartID).Scan(
		&v.Cart.ID, &v.Cart.UserID, &v.Cart.GuestToken, &v.Cart.Status,
		&v.Cart.ExpiresAt, &v.Cart.CreatedAt, &v.Cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart not found")
		}
		return nil, fmt.Errorf("get cart by id: %w", err)
	}

	return r.fillLines(ctx, &v)
}

// fillLines pulls the raw price fields alongside each line and resolves
// the effective unit price in Go, so the pricing rule has one home
// (catalog.ResolvePrice) instead of being duplicated in SQL.
func (r *Repository) fillLines(ctx context.Context, v *CartView) (*CartView, error) {
	rows, err := r.db.Query(ctx, `
SELECT
  ci.id, ci.product_id, ci.variant_id, ci.quantity, ci.display_price_cents,
  p.name, p.base_price_cents, p.sale_price_cents,
  pv.name, pv.price_cents
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN product_variants pv ON pv.id = ci.variant_id
WHERE ci.cart_id = $1
ORDER BY ci.id ASC
`, v.Cart.ID)
	if err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	defer rows.Close()

	v.Items = nil
	v.SubtotalCents = 0

	for rows.Next() {
		var line CartLine
		var basePrice int64
		var salePrice, variantPrice *int64

		if err := rows.Scan(
			&line.ItemID, &line.ProductID, &line.VariantID, &line.Quantity, &line.DisplayPriceCents,
			&line.ProductName, &basePrice, &salePrice,
			&line.VariantName, &variantPrice,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}

		p := &catalog.Product{BasePriceCents: basePrice, SalePriceCents: salePrice}
		var variant *catalog.Variant
		if line.VariantID != nil {
			variant = &catalog.Variant{PriceCents: variantPrice}
		}

		unit, err := catalog.ResolvePrice(p, variant)
		if err != nil {
			return nil, err
		}

		line.UnitPriceCents = unit
		line.LineTotalCents = int64(line.Quantity) * unit
		v.SubtotalCents += line.LineTotalCents
		v.Items = append(v.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart lines rows error: %w", err)
	}

	return v, nil
}

// Merge runs the one-time guest→user cart migration after login.
//
// Policy: if the user has no open cart (or an empty one), the guest cart is
// adopted wholesale; otherwise the user's cart wins and the guest cart is
// discarded without merging lines. Call inside a transaction.
func (r *Repository) Merge(ctx context.Context, guestToken string, userID int64) error {
	var guestCartID int64
	err := r.db.QueryRow(ctx, `
SELECT id
FROM carts
WHERE guest_token = $1
  AND status = 'active'
  AND (expires_at IS NULL OR expires_at > now())
LIMIT 1
`, guestToken).Scan(&guestCartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // nothing to migrate
		}
		return fmt.Errorf("find guest cart: %w", err)
	}

	var userItems int
	err = r.db.QueryRow(ctx, `
SELECT COUNT(ci.id)
FROM carts c
LEFT JOIN cart_items ci ON ci.cart_id = c.id
WHERE c.user_id = $1
  AND c.status = 'active'
  AND (c.expires_at IS NULL OR c.expires_at > now())
`, userID).Scan(&userItems)
	if err != nil {
		return fmt.Errorf("count user cart items: %w", err)
	}

	if userItems > 0 {
		// User cart wins; drop the guest copy.
		if _, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
			return fmt.Errorf("discard guest cart: %w", err)
		}
		return nil
	}

	// Adopt: any empty user cart goes away, the guest cart is re-keyed.
	if _, err := r.db.Exec(ctx, `
DELETE FROM carts
WHERE user_id = $1
  AND status = 'active'
`, userID); err != nil {
		return fmt.Errorf("drop empty user cart: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
UPDATE carts
SET user_id = $2,
    guest_token = NULL,
    updated_at = now()
WHERE id = $1
`, guestCartID, userID); err != nil {
		return fmt.Errorf("adopt guest cart: %w", err)
	}

	return nil
}

// Admin housekeeping: mark expired as abandoned
func (r *Repository) MarkExpiredAsAbandoned(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
UPDATE carts
SET status = 'abandoned',
    updated_at = now()
WHERE status = 'active'
  AND expires_at IS NOT NULL
  AND expires_at <= now()
`)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List returns carts for admin with optional status filter and expiry inclusion.
func (r *Repository) List(ctx context.Context, status string, includeExpired bool, limit, offset int) ([]Cart, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	args := []any{}
	arg := 1

	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", arg)
		args = append(args, status)
		arg++
	}
	if !includeExpired {
		where += " AND (expires_at IS NULL OR expires_at > now())"
	}

	q := fmt.Sprintf(`
SELECT id, user_id, guest_token, status, expires_at, created_at, updated_at,
       COUNT(*) OVER() AS total
FROM carts
WHERE %s
ORDER BY id DESC
LIMIT $%d OFFSET $%d
`, where, arg, arg+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	var out []Cart
	total := 0

	for rows.Next() {
		var c Cart
		var t int
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.GuestToken, &c.Status,
			&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, c)
	}

	return out, total, nil
}
