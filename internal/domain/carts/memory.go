package carts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps carts in process memory. It backs the anonymous /
// degraded path of the Resilient store; the display price captured at add
// time doubles as the unit price because no catalog is reachable.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	carts  map[string]*memCart
}

type memCart struct {
	id      int64
	created time.Time
	items   []*memItem
}

type memItem struct {
	id                int64
	productID         int64
	variantID         *int64
	quantity          int
	displayPriceCents int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*memCart)}
}

func (m *MemoryStore) cartFor(owner Owner) *memCart {
	key := owner.Key()
	c, ok := m.carts[key]
	if !ok {
		m.nextID++
		c = &memCart{id: m.nextID, created: time.Now()}
		m.carts[key] = c
	}
	return c
}

func (m *MemoryStore) EnsureActive(_ context.Context, owner Owner) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartFor(owner).id, nil
}

func (m *MemoryStore) AddItem(_ context.Context, owner Owner, productID int64, variantID *int64, qty int, displayPriceCents int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cartFor(owner)
	for _, it := range c.items {
		if it.productID == productID && sameVariant(it.variantID, variantID) {
			it.quantity += qty
			it.displayPriceCents = displayPriceCents
			return nil
		}
	}

	m.nextID++
	c.items = append(c.items, &memItem{
		id:                m.nextID,
		productID:         productID,
		variantID:         variantID,
		quantity:          qty,
		displayPriceCents: displayPriceCents,
	})
	return nil
}

func (m *MemoryStore) UpdateItemQty(ctx context.Context, owner Owner, itemID int64, qty int) error {
	if qty <= 0 {
		return m.RemoveItem(ctx, owner, itemID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.cartFor(owner).items {
		if it.id == itemID {
			it.quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *MemoryStore) RemoveItem(_ context.Context, owner Owner, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cartFor(owner)
	for i, it := range c.items {
		if it.id == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return nil // removing an absent item is a no-op
}

func (m *MemoryStore) Clear(_ context.Context, owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartFor(owner).items = nil
	return nil
}

func (m *MemoryStore) GetView(_ context.Context, owner Owner) (*CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cartFor(owner)
	v := &CartView{
		Cart: Cart{
			ID:         c.id,
			UserID:     owner.UserID,
			GuestToken: owner.GuestToken,
			Status:     "active",
			CreatedAt:  c.created,
			UpdatedAt:  time.Now(),
		},
	}

	for _, it := range c.items {
		line := CartLine{
			ItemID:            it.id,
			ProductID:         it.productID,
			VariantID:         it.variantID,
			Quantity:          it.quantity,
			DisplayPriceCents: it.displayPriceCents,
			UnitPriceCents:    it.displayPriceCents,
			LineTotalCents:    int64(it.quantity) * it.displayPriceCents,
		}
		v.SubtotalCents += line.LineTotalCents
		v.Items = append(v.Items, line)
	}
	return v, nil
}

func sameVariant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
