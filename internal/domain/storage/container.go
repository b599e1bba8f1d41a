package storage

import (
	"context"
	"fmt"

	"souk/internal/domain/carts"
	"souk/internal/domain/catalog"
	"souk/internal/domain/coupons"
	"souk/internal/domain/orders"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool *pgxpool.Pool
	gen  *orders.OrderNumberGenerator

	Catalog catalog.Store
	Carts   *carts.Repository
	Coupons coupons.Store
	Orders  orders.Store
}

func NewContainer(db *pgxpool.Pool, gen *orders.OrderNumberGenerator) *Container {
	return &Container{
		pool:    db,
		gen:     gen,
		Catalog: catalog.NewRepository(db),
		Carts:   carts.NewRepository(db),
		Coupons: coupons.NewRepository(db),
		Orders:  orders.NewRepository(db, gen),
	}
}

// SalesTx is a temporary, tx-scoped set of repos for atomic units of work.
type SalesTx struct {
	Catalog catalog.Store
	Carts   carts.Store
	Coupons coupons.Store
	Orders  orders.Store
}

// WithSalesTx runs a sales unit-of-work atomically. Everything the fn does
// through the SalesTx repos commits or rolls back as one.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *SalesTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &SalesTx{
		Catalog: catalog.NewRepository(tx),
		Carts:   carts.NewRepository(tx),
		Coupons: coupons.NewRepository(tx),
		Orders:  orders.NewRepository(tx, c.gen),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MergeCarts runs the guest→user cart migration as one atomic unit.
func (c *Container) MergeCarts(ctx context.Context, guestToken string, userID int64) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := carts.NewRepository(tx).Merge(ctx, guestToken, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
