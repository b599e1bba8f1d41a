package orders

import (
	"context"
	"errors"
	"fmt"

	"souk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository struct {
	q   dbx.Querier
	gen *OrderNumberGenerator
}

func NewRepository(q dbx.Querier, gen *OrderNumberGenerator) *Repository {
	if gen == nil {
		panic("orders: OrderNumberGenerator is nil")
	}
	return &Repository{q: q, gen: gen}
}

// Create inserts the order row and all item rows. The caller owns the
// transaction; nothing here commits.
func (r *Repository) Create(ctx context.Context, o *Order, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}

	o.OrderNumber = r.gen.Generate()
	if o.Status == "" {
		o.Status = "pending"
	}

	if err := r.q.QueryRow(ctx, `
INSERT INTO orders (
  user_id, order_number, status, coupon_code,
  customer_name, customer_email, customer_phone, customer_address, customer_city,
  subtotal_cents, discount_cents, shipping_cents, total_cents
) VALUES ($1, $2, $3::order_status, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at
`,
		o.UserID, o.OrderNumber, o.Status, o.CouponCode,
		o.Customer.FullName, o.Customer.Email, o.Customer.Phone, o.Customer.Address, o.Customer.City,
		o.SubtotalCents, o.DiscountCents, o.ShippingCents, o.TotalCents,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i := range items {
		it := &items[i]
		it.OrderID = o.ID
		if err := r.q.QueryRow(ctx, `
INSERT INTO order_items (
  order_id, product_id, variant_id, product_name, variant_name,
  quantity, unit_price_cents, total_cents
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`,
			it.OrderID, it.ProductID, it.VariantID, it.ProductName, it.VariantName,
			it.Quantity, it.UnitPriceCents, it.TotalCents,
		).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	return o, nil
}

const orderColumns = `
id, user_id, order_number, status, coupon_code,
customer_name, customer_email, customer_phone, customer_address, customer_city,
subtotal_cents, discount_cents, shipping_cents, total_cents, created_at`

func scanOrder(row pgx.Row, o *Order, extra ...any) error {
	dest := []any{
		&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.CouponCode,
		&o.Customer.FullName, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address, &o.Customer.City,
		&o.SubtotalCents, &o.DiscountCents, &o.ShippingCents, &o.TotalCents, &o.CreatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := scanOrder(r.q.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id=$1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT`+orderColumns+`,
       COUNT(*) OVER() AS total_count
FROM orders
WHERE user_id = $1
  AND ($2 = '' OR status::text = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`,
		userID, status, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, int, error) {
	var (
		out   []Order
		total int
	)
	for rows.Next() {
		var o Order
		var t int
		if err := scanOrder(rows, &o, &t); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.q.Query(ctx, `
SELECT id, order_id, product_id, variant_id, product_name, variant_name,
       quantity, unit_price_cents, total_cents
FROM order_items
WHERE order_id=$1
ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.ProductName, &it.VariantName,
			&it.Quantity, &it.UnitPriceCents, &it.TotalCents,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) GetDetailForUser(ctx context.Context, userID, orderID int64) (*OrderDetail, error) {
	var o Order
	err := scanOrder(r.q.QueryRow(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order for user: %w", err)
	}

	items, err := r.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: o, Items: items}, nil
}

// ListAll: admin – optional filter by status, with pagination
func (r *Repository) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT`+orderColumns+`,
       COUNT(*) OVER() AS total_count
FROM orders
WHERE ($1 = '' OR status::text = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("admin list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *Repository) GetDetail(ctx context.Context, orderID int64) (*OrderDetail, error) {
	var o Order
	err := scanOrder(r.q.QueryRow(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id=$1`, orderID), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order detail: %w", err)
	}

	items, err := r.loadItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return &OrderDetail{Order: o, Items: items}, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status string, opts UpdateStatusOpts) error {
	tag, err := r.q.Exec(ctx, `
UPDATE orders
SET status = $2::order_status,
    cancelled_reason = CASE WHEN $2 = 'cancelled' THEN $3 ELSE NULL END,
    cancelled_at     = CASE WHEN $2 = 'cancelled' THEN now() ELSE NULL END,
    updated_at       = now()
WHERE id = $1`,
		orderID, status, opts.CancelledReason,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
