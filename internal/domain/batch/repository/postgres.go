package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/counterworks/pos-import/internal/domain/batch"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB is what PostgresStore needs from its connection: pgxpool.Pool satisfies
// it, and so does pgxmock in tests.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db DB
	q  querier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// WithTx runs fn against a transaction-scoped store. Nested calls reuse the
// surrounding transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateBatch inserts a new import batch.
func (s *PostgresStore) CreateBatch(ctx context.Context, b *batch.ImportBatch) error {
	query := `
		INSERT INTO import_batches (id, name, source_name, fingerprint, status, total_rows, created_count, found_count, updated_count, error_count, entity_counts, errors, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	_, err := s.q.Exec(ctx, query,
		b.ID,
		b.Name,
		b.SourceName,
		b.Fingerprint,
		b.Status,
		b.TotalRows,
		b.CreatedCount,
		b.FoundCount,
		b.UpdatedCount,
		b.ErrorCount,
		b.EntityCounts,
		b.Errors,
		b.CreatedAt,
		b.StartedAt,
		b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create import batch: %w", err)
	}
	return nil
}

// UpdateBatch persists batch state and counters.
func (s *PostgresStore) UpdateBatch(ctx context.Context, b *batch.ImportBatch) error {
	query := `
		UPDATE import_batches
		SET status = $2, total_rows = $3, created_count = $4, found_count = $5, updated_count = $6, error_count = $7, entity_counts = $8, errors = $9, started_at = $10, finished_at = $11
		WHERE id = $1`

	result, err := s.q.Exec(ctx, query,
		b.ID,
		b.Status,
		b.TotalRows,
		b.CreatedCount,
		b.FoundCount,
		b.UpdatedCount,
		b.ErrorCount,
		b.EntityCounts,
		b.Errors,
		b.StartedAt,
		b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update import batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const batchColumns = `id, name, source_name, fingerprint, status, total_rows, created_count, found_count, updated_count, error_count, entity_counts, errors, created_at, started_at, finished_at`

// GetBatch retrieves a batch by ID.
func (s *PostgresStore) GetBatch(ctx context.Context, id uuid.UUID) (*batch.ImportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM import_batches WHERE id = $1`

	b, err := scanBatch(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import batch: %w", err)
	}
	return b, nil
}

// ListBatches retrieves batches newest first.
func (s *PostgresStore) ListBatches(ctx context.Context, limit, offset int) ([]*batch.ImportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM import_batches ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	var out []*batch.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*batch.ImportBatch, error) {
	b := &batch.ImportBatch{}
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.SourceName,
		&b.Fingerprint,
		&b.Status,
		&b.TotalRows,
		&b.CreatedCount,
		&b.FoundCount,
		&b.UpdatedCount,
		&b.ErrorCount,
		&b.EntityCounts,
		&b.Errors,
		&b.CreatedAt,
		&b.StartedAt,
		&b.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

const sellableColumns = `id, name, slug, sku, category, description, product_type, base_price, import_batch_id`

// FindSellableBySKU looks up a sellable by SKU, case-insensitive.
func (s *PostgresStore) FindSellableBySKU(ctx context.Context, sku string) (*batch.Sellable, error) {
	query := `SELECT ` + sellableColumns + ` FROM sellables WHERE lower(sku) = lower($1)`
	return s.scanSellable(s.q.QueryRow(ctx, query, sku))
}

// FindSellableByName looks up a sellable by exact name, case-insensitive.
func (s *PostgresStore) FindSellableByName(ctx context.Context, name string) (*batch.Sellable, error) {
	query := `SELECT ` + sellableColumns + ` FROM sellables WHERE lower(name) = lower($1)`
	return s.scanSellable(s.q.QueryRow(ctx, query, name))
}

func (s *PostgresStore) scanSellable(row pgx.Row) (*batch.Sellable, error) {
	sel := &batch.Sellable{}
	err := row.Scan(
		&sel.ID,
		&sel.Name,
		&sel.Slug,
		&sel.SKU,
		&sel.Category,
		&sel.Description,
		&sel.ProductType,
		&sel.BasePrice,
		&sel.ImportBatchID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sellable: %w", err)
	}
	return sel, nil
}

// ListSellableNames returns every sellable name, sorted.
func (s *PostgresStore) ListSellableNames(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sellables ORDER BY name`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellable names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan sellable name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateSellable inserts a sellable.
func (s *PostgresStore) CreateSellable(ctx context.Context, sel *batch.Sellable) error {
	query := `
		INSERT INTO sellables (id, name, slug, sku, category, description, product_type, base_price, import_batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if sel.ID == uuid.Nil {
		sel.ID = uuid.New()
	}

	_, err := s.q.Exec(ctx, query,
		sel.ID,
		sel.Name,
		sel.Slug,
		sel.SKU,
		sel.Category,
		sel.Description,
		sel.ProductType,
		sel.BasePrice,
		sel.ImportBatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to create sellable: %w", err)
	}
	return nil
}

// UpdateSellable persists sellable changes.
func (s *PostgresStore) UpdateSellable(ctx context.Context, sel *batch.Sellable) error {
	query := `
		UPDATE sellables
		SET name = $2, slug = $3, sku = $4, category = $5, description = $6, product_type = $7, base_price = $8
		WHERE id = $1`

	result, err := s.q.Exec(ctx, query,
		sel.ID,
		sel.Name,
		sel.Slug,
		sel.SKU,
		sel.Category,
		sel.Description,
		sel.ProductType,
		sel.BasePrice,
	)
	if err != nil {
		return fmt.Errorf("failed to update sellable: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindVariant looks up a variant by parent and size code.
func (s *PostgresStore) FindVariant(ctx context.Context, sellableID uuid.UUID, sizeCode string) (*batch.SellableVariant, error) {
	query := `
		SELECT id, sellable_id, name, size_code, size_name, sort_order, price_adjustment, portion_multiplier, sku, import_batch_id
		FROM sellable_variants
		WHERE sellable_id = $1 AND lower(size_code) = lower($2)`

	v := &batch.SellableVariant{}
	err := s.q.QueryRow(ctx, query, sellableID, sizeCode).Scan(
		&v.ID,
		&v.SellableID,
		&v.Name,
		&v.SizeCode,
		&v.SizeName,
		&v.SortOrder,
		&v.PriceAdjustment,
		&v.PortionMultiplier,
		&v.SKU,
		&v.ImportBatchID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find variant: %w", err)
	}
	return v, nil
}

// CreateVariant inserts a variant.
func (s *PostgresStore) CreateVariant(ctx context.Context, v *batch.SellableVariant) error {
	query := `
		INSERT INTO sellable_variants (id, sellable_id, name, size_code, size_name, sort_order, price_adjustment, portion_multiplier, sku, import_batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	_, err := s.q.Exec(ctx, query,
		v.ID,
		v.SellableID,
		v.Name,
		v.SizeCode,
		v.SizeName,
		v.SortOrder,
		v.PriceAdjustment,
		v.PortionMultiplier,
		v.SKU,
		v.ImportBatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

const customerColumns = `id, name, email, phone, mode, platform, external_id, import_batch_id`

// FindCustomerByEmail looks up a customer by email, case-insensitive.
func (s *PostgresStore) FindCustomerByEmail(ctx context.Context, email string) (*batch.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1)`
	return s.scanCustomer(s.q.QueryRow(ctx, query, email))
}

// FindCustomerByName looks up a customer by exact name, case-insensitive.
func (s *PostgresStore) FindCustomerByName(ctx context.Context, name string) (*batch.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE lower(name) = lower($1)`
	return s.scanCustomer(s.q.QueryRow(ctx, query, name))
}

func (s *PostgresStore) scanCustomer(row pgx.Row) (*batch.Customer, error) {
	c := &batch.Customer{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Mode,
		&c.Platform,
		&c.ExternalID,
		&c.ImportBatchID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return c, nil
}

// CreateCustomer inserts a customer.
func (s *PostgresStore) CreateCustomer(ctx context.Context, c *batch.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, phone, mode, platform, external_id, import_batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	_, err := s.q.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Mode,
		c.Platform,
		c.ExternalID,
		c.ImportBatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// UpdateCustomer persists customer changes.
func (s *PostgresStore) UpdateCustomer(ctx context.Context, c *batch.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, mode = $5, platform = $6, external_id = $7
		WHERE id = $1`

	result, err := s.q.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Mode,
		c.Platform,
		c.ExternalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const locationColumns = `id, name, type, external_id, address, city, zip, row_count, import_batch_id`

// FindLocationByExternalID looks up a location by external ID.
func (s *PostgresStore) FindLocationByExternalID(ctx context.Context, externalID string) (*batch.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE lower(external_id) = lower($1)`
	return s.scanLocation(s.q.QueryRow(ctx, query, externalID))
}

// FindLocationByName looks up a location by exact name, case-insensitive.
func (s *PostgresStore) FindLocationByName(ctx context.Context, name string) (*batch.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE lower(name) = lower($1)`
	return s.scanLocation(s.q.QueryRow(ctx, query, name))
}

func (s *PostgresStore) scanLocation(row pgx.Row) (*batch.Location, error) {
	l := &batch.Location{}
	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Type,
		&l.ExternalID,
		&l.Address,
		&l.City,
		&l.Zip,
		&l.RowCount,
		&l.ImportBatchID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan location: %w", err)
	}
	return l, nil
}

// CreateLocation inserts a location.
func (s *PostgresStore) CreateLocation(ctx context.Context, l *batch.Location) error {
	query := `
		INSERT INTO locations (id, name, type, external_id, address, city, zip, row_count, import_batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	_, err := s.q.Exec(ctx, query,
		l.ID,
		l.Name,
		l.Type,
		l.ExternalID,
		l.Address,
		l.City,
		l.Zip,
		l.RowCount,
		l.ImportBatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// UpdateLocation persists location changes.
func (s *PostgresStore) UpdateLocation(ctx context.Context, l *batch.Location) error {
	query := `
		UPDATE locations
		SET name = $2, type = $3, external_id = $4, address = $5, city = $6, zip = $7, row_count = $8
		WHERE id = $1`

	result, err := s.q.Exec(ctx, query,
		l.ID,
		l.Name,
		l.Type,
		l.ExternalID,
		l.Address,
		l.City,
		l.Zip,
		l.RowCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByBatch removes every entity tagged with the batch ID, children
// before parents, and reports per-type delete counts.
func (s *PostgresStore) DeleteByBatch(ctx context.Context, batchID uuid.UUID) (map[string]int, error) {
	counts := make(map[string]int)

	steps := []struct {
		key   string
		query string
	}{
		{"variants", `DELETE FROM sellable_variants WHERE import_batch_id = $1`},
		{"sellables", `DELETE FROM sellables WHERE import_batch_id = $1`},
		{"customers", `DELETE FROM customers WHERE import_batch_id = $1`},
		{"locations", `DELETE FROM locations WHERE import_batch_id = $1`},
	}
	for _, step := range steps {
		result, err := s.q.Exec(ctx, step.query, batchID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s for batch %s: %w", step.key, batchID, err)
		}
		counts[step.key] = int(result.RowsAffected())
	}
	return counts, nil
}
