// Package repository persists import batches and the entities they create.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/counterworks/pos-import/internal/domain/batch"
)

// Store is the persistence boundary the import pipeline works against.
// Lookups that find nothing return sql.ErrNoRows.
type Store interface {
	// Batches.
	CreateBatch(ctx context.Context, b *batch.ImportBatch) error
	UpdateBatch(ctx context.Context, b *batch.ImportBatch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*batch.ImportBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*batch.ImportBatch, error)

	// WithTx runs fn against a transactional view of the store. Any error
	// from fn rolls the whole transaction back.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Sellables.
	FindSellableBySKU(ctx context.Context, sku string) (*batch.Sellable, error)
	FindSellableByName(ctx context.Context, name string) (*batch.Sellable, error)
	ListSellableNames(ctx context.Context) ([]string, error)
	CreateSellable(ctx context.Context, s *batch.Sellable) error
	UpdateSellable(ctx context.Context, s *batch.Sellable) error
	FindVariant(ctx context.Context, sellableID uuid.UUID, sizeCode string) (*batch.SellableVariant, error)
	CreateVariant(ctx context.Context, v *batch.SellableVariant) error

	// Customers.
	FindCustomerByEmail(ctx context.Context, email string) (*batch.Customer, error)
	FindCustomerByName(ctx context.Context, name string) (*batch.Customer, error)
	CreateCustomer(ctx context.Context, c *batch.Customer) error
	UpdateCustomer(ctx context.Context, c *batch.Customer) error

	// Locations.
	FindLocationByExternalID(ctx context.Context, externalID string) (*batch.Location, error)
	FindLocationByName(ctx context.Context, name string) (*batch.Location, error)
	CreateLocation(ctx context.Context, l *batch.Location) error
	UpdateLocation(ctx context.Context, l *batch.Location) error

	// DeleteByBatch removes every entity tagged with the batch ID, children
	// before parents, and returns per-entity-type delete counts.
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) (map[string]int, error)
}
