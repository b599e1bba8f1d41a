package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"souk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var ErrDuplicateCode = errors.New("coupon code already exists")

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

// Normalize maps user input onto the canonical (upper-case) coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindByCode returns nil (no error) when the code does not exist, so the
// evaluator can report ReasonNotFound instead of surfacing a lookup error.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	c := &Coupon{}
	err := r.db.QueryRow(ctx, `
SELECT id, code, type, value, min_order_cents, expires_at, is_active, usage_count, usage_limit, created_at, updated_at
FROM coupons
WHERE code = $1
`, Normalize(code)).Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MinOrderCents, &c.ExpiresAt,
		&c.IsActive, &c.UsageCount, &c.UsageLimit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return c, nil
}

// ConsumeUsage increments usage_count with the capacity check in the same
// statement. Two concurrent checkouts racing on the last slot cannot both
// succeed: the row lock serializes them and the second sees no capacity.
func (r *Repository) ConsumeUsage(ctx context.Context, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
UPDATE coupons
SET usage_count = usage_count + 1,
    updated_at = now()
WHERE code = $1
  AND is_active = true
  AND (usage_limit IS NULL OR usage_count < usage_limit)
`, Normalize(code))
	if err != nil {
		return false, fmt.Errorf("consume coupon usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	c.Code = Normalize(c.Code)
	err := r.db.QueryRow(ctx, `
INSERT INTO coupons (code, type, value, min_order_cents, expires_at, is_active, usage_limit)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, usage_count, created_at, updated_at
`, c.Code, c.Type, c.Value, c.MinOrderCents, c.ExpiresAt, c.IsActive, c.UsageLimit).
		Scan(&c.ID, &c.UsageCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Coupon, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT id, code, type, value, min_order_cents, expires_at, is_active, usage_count, usage_limit, created_at, updated_at,
       COUNT(*) OVER() AS total
FROM coupons
ORDER BY id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var out []*Coupon
	total := 0

	for rows.Next() {
		c := &Coupon{}
		var t int
		if err := rows.Scan(
			&c.ID, &c.Code, &c.Type, &c.Value, &c.MinOrderCents, &c.ExpiresAt,
			&c.IsActive, &c.UsageCount, &c.UsageLimit, &c.CreatedAt, &c.UpdatedAt,
			&t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan coupon: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `
UPDATE coupons
SET is_active = $2,
    updated_at = now()
WHERE id = $1
`, id, active)
	if err != nil {
		return fmt.Errorf("set coupon active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon not found")
	}
	return nil
}
