package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/importer"
	"github.com/counterworks/pos-import/pkg/config"
	"github.com/counterworks/pos-import/pkg/cron"
)

func cmdDetect(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("file required")
	}

	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := dataset.FromFile(fs.Arg(0))
	if err != nil {
		return err
	}

	analysis, err := a.svc.Analyze(ctx, ds)
	if err != nil {
		return err
	}

	renderPlan(analysis.Plan, ds)
	return nil
}

func cmdPreview(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	name := fs.String("extractor", "", "preview only this extractor")
	limit := fs.Int("limit", 25, "max records to show per extractor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("file required")
	}

	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := dataset.FromFile(fs.Arg(0))
	if err != nil {
		return err
	}

	analysis, err := a.svc.Analyze(ctx, ds)
	if err != nil {
		return err
	}
	if len(analysis.Previews) == 0 {
		return fmt.Errorf("no extractor confidently matched %s", ds.SourceName)
	}

	for _, cand := range analysis.Plan.Confident() {
		if *name != "" && cand.Extractor != *name {
			continue
		}
		result, ok := analysis.Previews[cand.Extractor]
		if !ok {
			continue
		}
		renderPreview(cand.Extractor, cand.Confidence, result, *limit)
	}
	return nil
}

func cmdRun(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "stage and reconcile without writing")
	force := fs.String("force", "", "skip detection and run the named extractor")
	name := fs.String("name", "", "batch label, defaults to the file name")
	batchSize := fs.Int("batch-size", cfg.Import.BatchSize, "records per store call")
	minConfidence := fs.Float64("min-confidence", 0, "override the detection threshold")
	errorsOut := fs.String("errors-out", "", "write row errors to this CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("file required")
	}

	a, err := newApp(cfg, logger, !*dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := dataset.FromFile(fs.Arg(0))
	if err != nil {
		return err
	}

	b, runErr := a.svc.Run(ctx, ds, importer.Options{
		Name:           *name,
		DryRun:         *dryRun,
		ForceExtractor: *force,
		BatchSize:      *batchSize,
		MinConfidence:  *minConfidence,
	})
	if b != nil {
		renderBatch(b)
		if *errorsOut != "" && len(b.Errors) > 0 {
			if err := writeErrorReport(*errorsOut, b.Errors); err != nil {
				return errors.Join(runErr, err)
			}
			fmt.Printf("wrote %d row errors to %s\n", len(b.Errors), *errorsOut)
		}
	}
	return runErr
}

func cmdStatus(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	id, err := parseBatchID(args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.svc.Status(ctx, id)
	if err != nil {
		return err
	}
	renderBatch(b)
	return nil
}

func cmdList(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "max batches to show")
	offset := fs.Int("offset", 0, "batches to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	batches, err := a.store.ListBatches(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	renderBatchList(batches)
	return nil
}

func cmdRollback(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	id, err := parseBatchID(args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.svc.Rollback(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("batch %s rolled back\n", id)
	for _, key := range []string{"sellables", "variants", "customers", "locations"} {
		if counts[key] > 0 {
			fmt.Printf("  %-10s %d deleted\n", key, counts[key])
		}
	}
	return nil
}

func cmdWatch(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("dir", cfg.Watch.Dir, "directory to poll for exports")
	schedule := fs.String("schedule", cfg.Watch.Schedule, "cron schedule for scans")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("watch directory required (flag -dir or WATCH_DIR)")
	}

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := cron.NewScheduler(a.svc, *dir, *schedule, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start watch scheduler: %w", err)
	}
	scheduler.RunNow()

	var metricsSrv *http.Server
	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		logger.Info("metrics listening", slog.Int("port", cfg.Observability.MetricsPort))
	}

	<-ctx.Done()

	stopped := scheduler.Stop()
	<-stopped.Done()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
