// Package cron polls a drop directory for new POS exports using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/importer"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Scheduler scans a watch directory on a cron schedule and imports every
// supported file it finds. Handled files are moved into processed/ or
// failed/ subdirectories so restarts never re-import them.
type Scheduler struct {
	cron     *cron.Cron
	importer *importer.ImportService
	watchDir string
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a directory watcher.
func NewScheduler(svc *importer.ImportService, watchDir, schedule string, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		importer: svc,
		watchDir: watchDir,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins the scheduled scans.
func (s *Scheduler) Start() error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(s.watchDir, sub), 0o755); err != nil {
			return err
		}
	}

	if _, err := s.cron.AddFunc(s.schedule, s.scanOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("watch scheduler started",
		slog.String("dir", s.watchDir),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops scheduled scans.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("watch scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers an immediate scan.
func (s *Scheduler) RunNow() {
	s.scanOnce()
}

// scanOnce imports every supported file sitting in the watch directory.
func (s *Scheduler) scanOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		s.logger.Error("failed to read watch directory", slog.Any("error", err))
		return
	}

	imported := 0
	failed := 0

	for _, entry := range entries {
		if entry.IsDir() || !dataset.IsSupportedFile(entry.Name()) {
			continue
		}

		path := filepath.Join(s.watchDir, entry.Name())
		if err := s.importFile(ctx, path); err != nil {
			s.logger.Warn("import failed",
				slog.String("file", entry.Name()),
				slog.Any("error", err),
			)
			s.moveTo(path, failedDir)
			failed++
			continue
		}

		s.moveTo(path, processedDir)
		imported++
	}

	if imported > 0 || failed > 0 {
		s.logger.Info("watch scan completed",
			slog.Int("imported", imported),
			slog.Int("failed", failed),
		)
	}
}

func (s *Scheduler) importFile(ctx context.Context, path string) error {
	ds, err := dataset.FromFile(path)
	if err != nil {
		return err
	}

	b, err := s.importer.Run(ctx, ds, importer.Options{Name: filepath.Base(path)})
	if err != nil {
		return err
	}

	s.logger.Info("file imported",
		slog.String("file", ds.SourceName),
		slog.String("batch_id", b.ID.String()),
		slog.Int("created", b.CreatedCount),
		slog.Int("found", b.FoundCount),
		slog.Int("updated", b.UpdatedCount),
	)
	return nil
}

func (s *Scheduler) moveTo(path, sub string) {
	dest := filepath.Join(s.watchDir, sub, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		s.logger.Error("failed to move handled file",
			slog.String("file", path),
			slog.Any("error", err),
		)
	}
}
