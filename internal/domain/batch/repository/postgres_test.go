package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterworks/pos-import/internal/domain/batch"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock)
}

func TestPostgresStore_CreateBatch(t *testing.T) {
	mock, store := newMockStore(t)
	ctx := context.Background()

	b := batch.New("menu import", "menu.csv")
	b.Fingerprint = "fp"
	b.TotalRows = 10

	mock.ExpectExec(`INSERT INTO import_batches`).
		WithArgs(b.ID, b.Name, b.SourceName, b.Fingerprint, b.Status, b.TotalRows,
			0, 0, 0, 0, b.EntityCounts, b.Errors, b.CreatedAt, b.StartedAt, b.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateBatch(ctx, b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock, store := newMockStore(t)
		id := uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT .+ FROM import_batches WHERE id`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "source_name", "fingerprint", "status", "total_rows",
				"created_count", "found_count", "updated_count", "error_count",
				"entity_counts", "errors", "created_at", "started_at", "finished_at",
			}).AddRow(
				id, "menu import", "menu.csv", "fp", batch.StatusCompleted, 10,
				5, 3, 1, 0,
				map[string]int{"catalog_created": 5}, []batch.ImportError(nil), now, &now, &now,
			))

		b, err := store.GetBatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, batch.StatusCompleted, b.Status)
		assert.Equal(t, 5, b.CreatedCount)
		assert.Equal(t, 5, b.EntityCounts["catalog_created"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found maps to sql.ErrNoRows", func(t *testing.T) {
		mock, store := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery(`SELECT .+ FROM import_batches WHERE id`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := store.GetBatch(ctx, id)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresStore_UpdateBatch(t *testing.T) {
	mock, store := newMockStore(t)
	ctx := context.Background()

	b := batch.New("menu import", "menu.csv")

	t.Run("missing batch is sql.ErrNoRows", func(t *testing.T) {
		mock.ExpectExec(`UPDATE import_batches`).
			WithArgs(b.ID, b.Status, b.TotalRows, b.CreatedCount, b.FoundCount,
				b.UpdatedCount, b.ErrorCount, b.EntityCounts, b.Errors, b.StartedAt, b.FinishedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.UpdateBatch(ctx, b)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresStore_FindSellableBySKU(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock, store := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery(`SELECT .+ FROM sellables WHERE lower\(sku\)`).
			WithArgs("LAT-1").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "slug", "sku", "category", "description",
				"product_type", "base_price", "import_batch_id",
			}).AddRow(
				id, "Latte", "latte", "LAT-1", "Coffee", "",
				batch.ProductConfigurable, decimal.RequireFromString("4.00"), (*uuid.UUID)(nil),
			))

		s, err := store.FindSellableBySKU(ctx, "LAT-1")
		require.NoError(t, err)
		assert.Equal(t, "Latte", s.Name)
		assert.True(t, s.BasePrice.Equal(decimal.RequireFromString("4.00")))
	})

	t.Run("not found maps to sql.ErrNoRows", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery(`SELECT .+ FROM sellables WHERE lower\(sku\)`).
			WithArgs("MISSING").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.FindSellableBySKU(ctx, "MISSING")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresStore_CreateSellable(t *testing.T) {
	mock, store := newMockStore(t)
	ctx := context.Background()

	batchID := uuid.New()
	s := &batch.Sellable{
		Name:          "Latte",
		Slug:          "latte",
		ProductType:   batch.ProductConfigurable,
		BasePrice:     decimal.RequireFromString("4.00"),
		ImportBatchID: &batchID,
	}

	mock.ExpectExec(`INSERT INTO sellables`).
		WithArgs(pgxmock.AnyArg(), s.Name, s.Slug, s.SKU, s.Category, s.Description,
			s.ProductType, s.BasePrice, s.ImportBatchID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateSellable(ctx, s))
	assert.NotEqual(t, uuid.Nil, s.ID, "create assigns an id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteByBatch(t *testing.T) {
	mock, store := newMockStore(t)
	ctx := context.Background()
	batchID := uuid.New()

	// Children before parents: variants must go before sellables.
	mock.ExpectExec(`DELETE FROM sellable_variants`).
		WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM sellables`).
		WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM customers`).
		WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM locations`).
		WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	counts, err := store.DeleteByBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"variants":  3,
		"sellables": 2,
		"customers": 0,
		"locations": 1,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		mock, store := newMockStore(t)
		batchID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM sellable_variants`).
			WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`DELETE FROM sellables`).
			WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`DELETE FROM customers`).
			WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`DELETE FROM locations`).
			WithArgs(batchID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(tx Store) error {
			_, err := tx.DeleteByBatch(ctx, batchID)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(Store) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
