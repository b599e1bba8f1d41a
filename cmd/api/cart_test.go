package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"souk/internal/domain/carts"
	"souk/internal/domain/catalog"
	"souk/internal/domain/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// downCatalog simulates an unreachable catalog backend.
type downCatalog struct{}

var errCatalogDown = errors.New("connection refused")

func (downCatalog) GetProduct(context.Context, int64) (*catalog.Product, error) {
	return nil, errCatalogDown
}

func (downCatalog) GetVariant(context.Context, int64) (*catalog.Variant, error) {
	return nil, errCatalogDown
}

func (downCatalog) GetVariantOfProduct(context.Context, int64, int64) (*catalog.Variant, error) {
	return nil, errCatalogDown
}

func (downCatalog) ListProductCards(context.Context, int, int) ([]*catalog.ProductCard, int, error) {
	return nil, 0, errCatalogDown
}

func (downCatalog) GetProductDetailBySlug(context.Context, string) (*catalog.ProductDetail, error) {
	return nil, errCatalogDown
}

// missingCatalog is reachable but knows no products.
type missingCatalog struct{ downCatalog }

func (missingCatalog) GetProduct(context.Context, int64) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func newCartTestApp(cat catalog.Store) *application {
	return &application{
		logger: zap.NewNop().Sugar(),
		store:  &storage.Container{Catalog: cat},
		carts:  carts.NewMemoryStore(),
	}
}

func addItemRequest(t *testing.T, owner carts.Owner, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/store/cart/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), ownerCtx, owner))
}

func TestAddCartItemSucceedsWhenCatalogIsDown(t *testing.T) {
	app := newCartTestApp(downCatalog{})
	owner := carts.GuestOwner("guest-1")

	rr := httptest.NewRecorder()
	app.addCartItemHandler(rr, addItemRequest(t, owner, `{"product_id": 10, "qty": 2}`))

	require.Equal(t, http.StatusCreated, rr.Code)

	view, err := app.carts.GetView(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	// No price was resolvable; the line carries a zero display price.
	assert.Zero(t, view.Items[0].DisplayPriceCents)
}

func TestAddCartItemUnknownProductIsNotFound(t *testing.T) {
	app := newCartTestApp(missingCatalog{})

	rr := httptest.NewRecorder()
	app.addCartItemHandler(rr, addItemRequest(t, carts.GuestOwner("guest-1"), `{"product_id": 99, "qty": 1}`))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
