package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"souk/internal/domain/carts"
	"souk/internal/domain/catalog"
	"souk/internal/domain/coupons"
	"souk/internal/domain/orders"
	"souk/internal/domain/shipping"
	"souk/internal/domain/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products map[int64]*catalog.Product
	variants map[int64]*catalog.Variant
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetVariant(_ context.Context, id int64) (*catalog.Variant, error) {
	v, ok := f.variants[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return v, nil
}

func (f *fakeCatalog) GetVariantOfProduct(_ context.Context, productID, variantID int64) (*catalog.Variant, error) {
	v, ok := f.variants[variantID]
	if !ok || v.ProductID != productID {
		return nil, catalog.ErrProductNotFound
	}
	return v, nil
}

func (f *fakeCatalog) ListProductCards(context.Context, int, int) ([]*catalog.ProductCard, int, error) {
	return nil, 0, nil
}

func (f *fakeCatalog) GetProductDetailBySlug(context.Context, string) (*catalog.ProductDetail, error) {
	return nil, nil
}

type fakeCoupons struct {
	mu      sync.Mutex
	coupons map[string]*coupons.Coupon
}

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (*coupons.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) ConsumeUsage(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[code]
	if !ok {
		return false, nil
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false, nil
	}
	c.UsageCount++
	return true, nil
}

func (f *fakeCoupons) Create(context.Context, *coupons.Coupon) (*coupons.Coupon, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCoupons) List(context.Context, int, int) ([]*coupons.Coupon, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeCoupons) SetActive(context.Context, int64, bool) error {
	return errors.New("not implemented")
}

type fakeOrders struct {
	mu      sync.Mutex
	nextID  int64
	created []*orders.OrderDetail
}

func (f *fakeOrders) Create(_ context.Context, o *orders.Order, items []orders.OrderItem) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.OrderNumber = fmt.Sprintf("SOUK-TEST%04d", f.nextID)
	o.CreatedAt = time.Now()
	f.created = append(f.created, &orders.OrderDetail{Order: *o, Items: items})
	return o, nil
}

func (f *fakeOrders) GetByID(context.Context, int64) (*orders.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrders) ListByUser(context.Context, int64, string, int, int) ([]orders.Order, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeOrders) GetDetailForUser(context.Context, int64, int64) (*orders.OrderDetail, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrders) ListAll(context.Context, string, int, int) ([]orders.Order, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeOrders) GetDetail(context.Context, int64) (*orders.OrderDetail, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrders) UpdateStatus(context.Context, int64, string, orders.UpdateStatusOpts) error {
	return errors.New("not implemented")
}

// fakeRunner hands the same repo set to every unit of work. The
// fakeCoupons mutex stands in for the row lock a real transaction takes.
type fakeRunner struct {
	tx *storage.SalesTx
}

func (f *fakeRunner) WithSalesTx(_ context.Context, fn func(s *storage.SalesTx) error) error {
	return fn(f.tx)
}

type env struct {
	catalog *fakeCatalog
	coupons *fakeCoupons
	orders  *fakeOrders
	carts   *carts.MemoryStore
	svc     *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		catalog: &fakeCatalog{
			products: map[int64]*catalog.Product{},
			variants: map[int64]*catalog.Variant{},
		},
		coupons: &fakeCoupons{coupons: map[string]*coupons.Coupon{}},
		orders:  &fakeOrders{},
		carts:   carts.NewMemoryStore(),
	}
	runner := &fakeRunner{tx: &storage.SalesTx{
		Catalog: e.catalog,
		Carts:   e.carts,
		Coupons: e.coupons,
		Orders:  e.orders,
	}}
	ship := shipping.Config{FreeThresholdCents: 3000, FlatRateCents: 250}
	e.svc = NewService(runner, ship, nil, zap.NewNop().Sugar())
	return e
}

func (e *env) addProduct(id int64, name string, base int64, sale *int64) {
	e.catalog.products[id] = &catalog.Product{
		ID: id, Name: name, BasePriceCents: base, SalePriceCents: sale, IsActive: true,
	}
}

func (e *env) addVariant(id, productID int64, name string, price *int64) {
	e.catalog.variants[id] = &catalog.Variant{
		ID: id, ProductID: productID, Name: name, PriceCents: price, IsActive: true,
	}
}

func customer() CustomerDetails {
	return CustomerDetails{
		FullName: "Amina Said",
		Email:    "amina@example.com",
		Phone:    "+212600000000",
		Address:  "12 Rue des Orangers",
		City:     "Casablanca",
	}
}

func i64(v int64) *int64 { return &v }

func TestCheckoutComputesTotalsFromCatalog(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    []LineItem{{ProductID: 1, Quantity: 2}},
		Customer: customer(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1600), res.SubtotalCents)
	assert.Equal(t, int64(0), res.DiscountCents)
	assert.Equal(t, int64(250), res.ShippingCents)
	assert.Equal(t, int64(1850), res.TotalCents)
	assert.NotEmpty(t, res.OrderNumber)

	require.Len(t, e.orders.created, 1)
	detail := e.orders.created[0]
	require.Len(t, detail.Items, 1)
	assert.Equal(t, int64(800), detail.Items[0].UnitPriceCents)
	assert.Equal(t, "pending", detail.Order.Status)
}

func TestCheckoutResolvesPriceVariants(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Ceramic Tagine", 2000, i64(1500))
	e.addVariant(10, 1, "Large", i64(2400))
	e.addVariant(11, 1, "Small", nil)

	tests := []struct {
		name     string
		item     LineItem
		wantUnit int64
	}{
		{"variant override beats sale price", LineItem{ProductID: 1, VariantID: i64(10), Quantity: 1}, 2400},
		{"variant without override uses sale price", LineItem{ProductID: 1, VariantID: i64(11), Quantity: 1}, 1500},
		{"no variant uses sale price", LineItem{ProductID: 1, Quantity: 1}, 1500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
				Items:    []LineItem{tc.item},
				Customer: customer(),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantUnit, res.SubtotalCents)
		})
	}
}

func TestCheckoutAppliesPercentageCoupon(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)
	e.coupons.coupons["SAVE10"] = &coupons.Coupon{
		ID: 1, Code: "SAVE10", Type: coupons.DiscountPercentage, Value: 10, IsActive: true,
	}

	code := "save10 "
	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:      []LineItem{{ProductID: 1, Quantity: 2}},
		Customer:   customer(),
		CouponCode: &code,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Coupon)
	assert.True(t, res.Coupon.Applied)
	assert.Equal(t, "SAVE10", res.Coupon.Code)
	assert.Equal(t, int64(160), res.DiscountCents)
	// shipping is computed on the discounted subtotal
	assert.Equal(t, int64(250), res.ShippingCents)
	assert.Equal(t, int64(1690), res.TotalCents)
	assert.Equal(t, 1, e.coupons.coupons["SAVE10"].UsageCount)
}

func TestCheckoutFreeShippingAboveThreshold(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Wool Rug", 4000, nil)

	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    []LineItem{{ProductID: 1, Quantity: 1}},
		Customer: customer(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.ShippingCents)
	assert.Equal(t, int64(4000), res.TotalCents)
}

func TestCheckoutDiscountCanDropBelowFreeShipping(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Wool Rug", 3100, nil)
	e.coupons.coupons["FLAT500"] = &coupons.Coupon{
		ID: 1, Code: "FLAT500", Type: coupons.DiscountFixed, Value: 500, IsActive: true,
	}

	code := "FLAT500"
	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:      []LineItem{{ProductID: 1, Quantity: 1}},
		Customer:   customer(),
		CouponCode: &code,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.DiscountCents)
	assert.Equal(t, int64(250), res.ShippingCents)
	assert.Equal(t, int64(2850), res.TotalCents)
}

func TestCheckoutRejectedCouponDoesNotBlockOrder(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		coupon *coupons.Coupon
		reason coupons.Reason
	}{
		{"unknown code", nil, coupons.ReasonNotFound},
		{
			"inactive",
			&coupons.Coupon{Code: "GONE", Type: coupons.DiscountFixed, Value: 100},
			coupons.ReasonInactive,
		},
		{
			"expired",
			&coupons.Coupon{Code: "GONE", Type: coupons.DiscountFixed, Value: 100, IsActive: true, ExpiresAt: &past},
			coupons.ReasonExpired,
		},
		{
			"minimum not met",
			&coupons.Coupon{Code: "GONE", Type: coupons.DiscountFixed, Value: 100, IsActive: true, MinOrderCents: i64(5000)},
			coupons.ReasonMinimumNotMet,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.addProduct(1, "Argan Oil", 800, nil)
			if tc.coupon != nil {
				e.coupons.coupons[tc.coupon.Code] = tc.coupon
			}

			code := "GONE"
			res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
				Items:      []LineItem{{ProductID: 1, Quantity: 1}},
				Customer:   customer(),
				CouponCode: &code,
			})
			require.NoError(t, err)

			require.NotNil(t, res.Coupon)
			assert.False(t, res.Coupon.Applied)
			assert.Equal(t, tc.reason, res.Coupon.Reason)
			assert.Equal(t, int64(0), res.DiscountCents)
			assert.Equal(t, int64(800), res.SubtotalCents)
		})
	}
}

func TestCheckoutCouponLastSlotRace(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)
	limit := 1
	e.coupons.coupons["LAST1"] = &coupons.Coupon{
		ID: 1, Code: "LAST1", Type: coupons.DiscountFixed, Value: 100, IsActive: true, UsageLimit: &limit,
	}

	results := make([]*Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := "LAST1"
			results[i], errs[i] = e.svc.Checkout(context.Background(), carts.GuestOwner(fmt.Sprintf("g-%d", i)), Request{
				Items:      []LineItem{{ProductID: 1, Quantity: 1}},
				Customer:   customer(),
				CouponCode: &code,
			})
		}(i)
	}
	wg.Wait()

	applied := 0
	for i, res := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, res.Coupon)
		if res.Coupon.Applied {
			applied++
		} else {
			assert.Equal(t, coupons.ReasonUsageLimitReached, res.Coupon.Reason)
		}
	}
	assert.Equal(t, 1, applied, "exactly one checkout may claim the last slot")
	assert.Equal(t, 1, e.coupons.coupons["LAST1"].UsageCount)
	assert.Len(t, e.orders.created, 2, "the loser still places its order")
}

func TestCheckoutDropsVanishedProducts(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items: []LineItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 99, Quantity: 3},
		},
		Customer: customer(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(800), res.SubtotalCents)
	require.Len(t, e.orders.created, 1)
	assert.Len(t, e.orders.created[0].Items, 1)
}

func TestCheckoutAllProductsVanished(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    []LineItem{{ProductID: 99, Quantity: 1}},
		Customer: customer(),
	})
	assert.ErrorIs(t, err, ErrNoValidItems)
	assert.Empty(t, e.orders.created)
}

func TestCheckoutEmptySnapshot(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	_, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    nil,
		Customer: customer(),
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    []LineItem{{ProductID: 1, Quantity: 0}, {ProductID: 1, Quantity: -2}},
		Customer: customer(),
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	res, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items: []LineItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
		Customer: customer(),
	})
	require.NoError(t, err)

	require.Len(t, e.orders.created, 1)
	require.Len(t, e.orders.created[0].Items, 1)
	assert.Equal(t, 3, e.orders.created[0].Items[0].Quantity)
	assert.Equal(t, int64(2400), res.SubtotalCents)
}

func TestCheckoutClearsOwnersCart(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	owner := carts.GuestOwner("g-1")
	require.NoError(t, e.carts.AddItem(context.Background(), owner, 1, nil, 2, 800))

	_, err := e.svc.Checkout(context.Background(), owner, Request{
		Items:    []LineItem{{ProductID: 1, Quantity: 2}},
		Customer: customer(),
	})
	require.NoError(t, err)

	view, err := e.carts.GetView(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckoutNotifierSeesCommittedOrder(t *testing.T) {
	e := newEnv(t)
	e.addProduct(1, "Argan Oil", 800, nil)

	var got *orders.OrderDetail
	e.svc.notifier = notifierFunc(func(d *orders.OrderDetail) { got = d })

	_, err := e.svc.Checkout(context.Background(), carts.GuestOwner("g-1"), Request{
		Items:    []LineItem{{ProductID: 1, Quantity: 1}},
		Customer: customer(),
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, int64(1050), got.Order.TotalCents)
	assert.Equal(t, "amina@example.com", got.Order.Customer.Email)
}

type notifierFunc func(*orders.OrderDetail)

func (f notifierFunc) OrderPlaced(d *orders.OrderDetail) { f(d) }

func TestMergeLinesKeepsVariantsDistinct(t *testing.T) {
	out := mergeLines([]LineItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 1, VariantID: i64(5), Quantity: 1},
		{ProductID: 1, VariantID: i64(5), Quantity: 2},
	})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Quantity)
	assert.Equal(t, 3, out[1].Quantity)
}
