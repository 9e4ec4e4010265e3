package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/detect"
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/internal/domain/importer"
	"github.com/counterworks/pos-import/pkg/config"
	"github.com/counterworks/pos-import/pkg/db"
	"github.com/counterworks/pos-import/pkg/metrics"
)

// app wires the detection service, the store, and the import orchestrator.
// Commands that never write (detect, preview, dry runs) get an in-memory
// store and skip the database entirely.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *db.DB
	store   repository.Store
	svc     *importer.ImportService
	metrics *metrics.Metrics
}

func newApp(cfg *config.Config, logger *slog.Logger, needDB bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if needDB {
		database, err := db.New(db.Config{
			DSN:             cfg.Database.DSN(),
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: 10 * time.Minute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
		if err := database.RunMigrations(); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.db = database
		a.store = repository.NewPostgresStore(database.Pool)
	} else {
		a.store = repository.NewMemoryStore()
	}

	detector, err := newDetector(cfg.Import, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.svc = importer.NewImportService(detector, a.store, logger).
		WithMaxErrorPercentage(cfg.Import.MaxErrorPercentage)

	if cfg.Observability.MetricsEnabled {
		a.metrics = metrics.New()
		a.svc.WithMetrics(a.metrics)
	}

	return a, nil
}

func newDetector(imp config.ImportConfig, logger *slog.Logger) (*detect.Service, error) {
	detector := detect.NewService(logger)
	if imp.MinConfidence > 0 {
		detector.WithMinConfidence(imp.MinConfidence)
	}

	customerOpts := extractor.DefaultCustomerOptions()
	if imp.FallbackMode != "" {
		customerOpts.FallbackMode = imp.FallbackMode
	}
	customerOpts.FallbackName = imp.FallbackName

	for _, ext := range []extractor.Extractor{
		extractor.NewLocationExtractor(logger),
		extractor.NewCatalogExtractor(logger),
		extractor.NewCustomerExtractorWithOptions(logger, customerOpts),
	} {
		if err := detector.Register(ext); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", ext.Name(), err)
		}
	}
	return detector, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
