package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/counterworks/pos-import/internal/domain/batch"
)

// MemoryStore is an in-memory Store used for dry runs and tests. It honors
// the same not-found and uniqueness semantics as the Postgres store.
type MemoryStore struct {
	mu sync.RWMutex

	batches   map[uuid.UUID]*batch.ImportBatch
	sellables map[uuid.UUID]*batch.Sellable
	variants  map[uuid.UUID]*batch.SellableVariant
	customers map[uuid.UUID]*batch.Customer
	locations map[uuid.UUID]*batch.Location

	batchOrder []uuid.UUID
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:   make(map[uuid.UUID]*batch.ImportBatch),
		sellables: make(map[uuid.UUID]*batch.Sellable),
		variants:  make(map[uuid.UUID]*batch.SellableVariant),
		customers: make(map[uuid.UUID]*batch.Customer),
		locations: make(map[uuid.UUID]*batch.Location),
	}
}

func (m *MemoryStore) CreateBatch(_ context.Context, b *batch.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	m.batches[b.ID] = &cp
	m.batchOrder = append(m.batchOrder, b.ID)
	return nil
}

func (m *MemoryStore) UpdateBatch(_ context.Context, b *batch.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.batches[b.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *MemoryStore) GetBatch(_ context.Context, id uuid.UUID) (*batch.ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) ListBatches(_ context.Context, limit, offset int) ([]*batch.ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first, like the SQL ORDER BY created_at DESC.
	var out []*batch.ImportBatch
	for i := len(m.batchOrder) - 1; i >= 0; i-- {
		b := m.batches[m.batchOrder[i]]
		cp := *b
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// WithTx runs fn directly against the store. The in-memory store has no real
// transactions; dry runs rely on the store being discarded afterwards.
func (m *MemoryStore) WithTx(_ context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *MemoryStore) FindSellableBySKU(_ context.Context, sku string) (*batch.Sellable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sellables {
		if s.SKU != "" && strings.EqualFold(s.SKU, sku) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) FindSellableByName(_ context.Context, name string) (*batch.Sellable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sellables {
		if strings.EqualFold(s.Name, name) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) ListSellableNames(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sellables))
	for _, s := range m.sellables {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) CreateSellable(_ context.Context, s *batch.Sellable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SKU != "" {
		for _, existing := range m.sellables {
			if strings.EqualFold(existing.SKU, s.SKU) {
				return fmt.Errorf("sellable with sku %q already exists", s.SKU)
			}
		}
	}
	cp := *s
	m.sellables[s.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateSellable(_ context.Context, s *batch.Sellable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sellables[s.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *s
	m.sellables[s.ID] = &cp
	return nil
}

func (m *MemoryStore) FindVariant(_ context.Context, sellableID uuid.UUID, sizeCode string) (*batch.SellableVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.variants {
		if v.SellableID == sellableID && strings.EqualFold(v.SizeCode, sizeCode) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) CreateVariant(_ context.Context, v *batch.SellableVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	cp := *v
	m.variants[v.ID] = &cp
	return nil
}

func (m *MemoryStore) FindCustomerByEmail(_ context.Context, email string) (*batch.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.customers {
		if c.Email != "" && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) FindCustomerByName(_ context.Context, name string) (*batch.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) CreateCustomer(_ context.Context, c *batch.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateCustomer(_ context.Context, c *batch.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[c.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *MemoryStore) FindLocationByExternalID(_ context.Context, externalID string) (*batch.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.locations {
		if l.ExternalID != "" && strings.EqualFold(l.ExternalID, externalID) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) FindLocationByName(_ context.Context, name string) (*batch.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.locations {
		if strings.EqualFold(l.Name, name) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MemoryStore) CreateLocation(_ context.Context, l *batch.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	m.locations[l.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateLocation(_ context.Context, l *batch.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locations[l.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *l
	m.locations[l.ID] = &cp
	return nil
}

// DeleteByBatch removes entities tagged with the batch ID, children before
// parents.
func (m *MemoryStore) DeleteByBatch(_ context.Context, batchID uuid.UUID) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)

	for id, v := range m.variants {
		if v.ImportBatchID != nil && *v.ImportBatchID == batchID {
			delete(m.variants, id)
			counts["variants"]++
		}
	}
	for id, s := range m.sellables {
		if s.ImportBatchID != nil && *s.ImportBatchID == batchID {
			delete(m.sellables, id)
			counts["sellables"]++
		}
	}
	for id, c := range m.customers {
		if c.ImportBatchID != nil && *c.ImportBatchID == batchID {
			delete(m.customers, id)
			counts["customers"]++
		}
	}
	for id, l := range m.locations {
		if l.ImportBatchID != nil && *l.ImportBatchID == batchID {
			delete(m.locations, id)
			counts["locations"]++
		}
	}

	return counts, nil
}

// CountSellables reports stored sellables. Test helper.
func (m *MemoryStore) CountSellables() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sellables)
}

// CountVariants reports stored variants. Test helper.
func (m *MemoryStore) CountVariants() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.variants)
}

// CountCustomers reports stored customers. Test helper.
func (m *MemoryStore) CountCustomers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers)
}

// CountLocations reports stored locations. Test helper.
func (m *MemoryStore) CountLocations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locations)
}
