// Package e2etest exercises the import pipeline end to end: files on disk
// through detection, extraction, commit, and rollback.
package e2etest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/detect"
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/internal/domain/importer"
	"github.com/counterworks/pos-import/pkg/cron"
)

func newPipeline(t *testing.T) (*importer.ImportService, *repository.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	detector := detect.NewService(logger)
	require.NoError(t, detector.Register(extractor.NewLocationExtractor(logger)))
	require.NoError(t, detector.Register(extractor.NewCatalogExtractor(logger)))
	require.NoError(t, detector.Register(extractor.NewCustomerExtractor(logger)))

	store := repository.NewMemoryStore()
	return importer.NewImportService(detector, store, logger), store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const menuCSV = `Item Name,Price,Category
Latte Sm,3.50,Coffee
Latte Rg,4.00,Coffee
Latte Lg,4.50,Coffee
Muffin,2.50,Bakery
`

func TestImportFromCSVFile(t *testing.T) {
	svc, store := newPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "menu.csv", menuCSV)

	ds, err := dataset.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "menu.csv", ds.SourceName)

	b, err := svc.Run(context.Background(), ds, importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, b.Status)
	assert.Equal(t, 2, store.CountSellables())
	assert.Equal(t, 3, store.CountVariants())

	latte, err := store.FindSellableByName(context.Background(), "Latte")
	require.NoError(t, err)
	assert.Equal(t, "4", latte.BasePrice.String(), "median of the size ladder")
}

func TestImportFromXLSXFile(t *testing.T) {
	svc, store := newPipeline(t)
	dir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Item Name", "Price", "Category"},
		{"Espresso", 2.50, "Coffee"},
		{"Mocha", 5.00, "Coffee"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	path := filepath.Join(dir, "menu.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ds, err := dataset.FromFile(path)
	require.NoError(t, err)

	b, err := svc.Run(context.Background(), ds, importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, b.Status)
	assert.Equal(t, 2, store.CountSellables())
}

func TestImportThenRollback(t *testing.T) {
	svc, store := newPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "menu.csv", menuCSV)

	ds, err := dataset.FromFile(path)
	require.NoError(t, err)

	b, err := svc.Run(context.Background(), ds, importer.Options{})
	require.NoError(t, err)

	counts, err := svc.Rollback(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["sellables"])
	assert.Equal(t, 3, counts["variants"])
	assert.Zero(t, store.CountSellables())
	assert.Zero(t, store.CountVariants())
}

func TestWatchSchedulerImportsDroppedFiles(t *testing.T) {
	svc, store := newPipeline(t)
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writeFile(t, dir, "menu.csv", menuCSV)
	writeFile(t, dir, "notes.md", "not an export")

	scheduler := cron.NewScheduler(svc, dir, "*/5 * * * *", logger)
	require.NoError(t, scheduler.Start())
	defer func() {
		ctx := scheduler.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	}()

	scheduler.RunNow()

	assert.Equal(t, 2, store.CountSellables())
	assert.Equal(t, 3, store.CountVariants())

	_, err := os.Stat(filepath.Join(dir, "processed", "menu.csv"))
	assert.NoError(t, err, "imported file moves to processed/")
	_, err = os.Stat(filepath.Join(dir, "notes.md"))
	assert.NoError(t, err, "unsupported files are left alone")
}
