package catalog

import (
	"context"
	"errors"
	"fmt"

	"souk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p := &Product{}
	err := r.db.QueryRow(ctx, `
SELECT id, name, slug, description, base_price_cents, sale_price_cents, stock, is_active, created_at, updated_at
FROM products
WHERE id = $1 AND is_active = true
`, id).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description,
		&p.BasePriceCents, &p.SalePriceCents, &p.Stock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	v := &Variant{}
	err := r.db.QueryRow(ctx, `
SELECT id, product_id, name, price_cents, stock, is_active, created_at, updated_at
FROM product_variants
WHERE id = $1 AND is_active = true
`, id).Scan(
		&v.ID, &v.ProductID, &v.Name, &v.PriceCents, &v.Stock, &v.IsActive,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// GetVariantOfProduct fetches a variant only when it belongs to the given
// product. Checkout uses this so a tampered snapshot cannot pair a cheap
// variant override with a different product.
func (r *Repository) GetVariantOfProduct(ctx context.Context, productID, variantID int64) (*Variant, error) {
	v := &Variant{}
	err := r.db.QueryRow(ctx, `
SELECT id, product_id, name, price_cents, stock, is_active, created_at, updated_at
FROM product_variants
WHERE id = $1 AND product_id = $2 AND is_active = true
`, variantID, productID).Scan(
		&v.ID, &v.ProductID, &v.Name, &v.PriceCents, &v.Stock, &v.IsActive,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get variant of product: %w", err)
	}
	return v, nil
}

func (r *Repository) ListProductCards(ctx context.Context, limit, offset int) ([]*ProductCard, int, error) {
	if limit <= 0 || limit > 30 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT p.id, p.name, p.slug, p.description, p.base_price_cents, p.sale_price_cents,
       (SELECT COUNT(*) FROM product_variants pv WHERE pv.product_id = p.id AND pv.is_active) AS variants_count,
       p.is_active, p.created_at,
       COUNT(*) OVER() AS total
FROM products p
WHERE p.is_active = true
ORDER BY p.created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*ProductCard
	total := 0

	for rows.Next() {
		c := &ProductCard{}
		var t int
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Slug, &c.Description, &c.BasePriceCents, &c.SalePriceCents,
			&c.VariantsCount, &c.IsActive, &c.CreatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product card: %w", err)
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

func (r *Repository) GetProductDetailBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	p := &Product{}
	err := r.db.QueryRow(ctx, `
SELECT id, name, slug, description, base_price_cents, sale_price_cents, stock, is_active, created_at, updated_at
FROM products
WHERE slug = $1 AND is_active = true
`, slug).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description,
		&p.BasePriceCents, &p.SalePriceCents, &p.Stock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	rows, err := r.db.Query(ctx, `
SELECT id, product_id, name, price_cents, stock, is_active, created_at, updated_at
FROM product_variants
WHERE product_id = $1 AND is_active = true
ORDER BY id ASC
`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v := &Variant{}
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.Name, &v.PriceCents, &v.Stock, &v.IsActive,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ProductDetail{Product: p, Variants: variants}, nil
}
