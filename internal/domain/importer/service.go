// Package importer orchestrates the import pipeline: detect, extract, stage,
// commit, rollback. It owns the batch lifecycle and the all-or-nothing commit
// guarantee.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/detect"
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/pkg/metrics"
)

// DefaultBatchSize is how many records are committed per store call.
const DefaultBatchSize = 500

// DefaultMaxErrorPercentage fails a run before commit when more than this
// share of rows produced hard errors.
const DefaultMaxErrorPercentage = 10.0

var (
	// ErrNoConfidentMatch means no extractor cleared the confidence
	// threshold and none was forced.
	ErrNoConfidentMatch = errors.New("no extractor confidently matched the dataset")
	// ErrNotRollbackable means the batch is not in a terminal state that
	// permits rollback.
	ErrNotRollbackable = errors.New("batch cannot be rolled back from its current status")
	// ErrUnknownExtractor means a forced extractor name is not registered.
	ErrUnknownExtractor = errors.New("unknown extractor")
)

// Options tune one import run.
type Options struct {
	// Name labels the batch; defaults to the dataset source name.
	Name string
	// DryRun stages and reconciles against a throwaway in-memory store.
	// Nothing is persisted, including the batch itself.
	DryRun bool
	// ForceExtractor bypasses detection and runs the named extractor alone.
	ForceExtractor string
	// BatchSize is the record chunk size per store call. Defaults to
	// DefaultBatchSize.
	BatchSize int
	// MinConfidence overrides the detection threshold when > 0.
	MinConfidence float64
}

// Analysis is the read-only outcome of Analyze: the detection plan plus a
// full extraction preview per confident candidate.
type Analysis struct {
	Plan     *detect.Plan
	Previews map[string]*extractor.Result
}

// Stage is one extractor's staged contribution to a commit.
type Stage struct {
	Extractor string
	Priority  int
	Records   []extractor.Record
	Issues    []extractor.Issue
}

// CommitPlan is the staged, ordered work of a run. Stages are sorted by
// extractor priority and are not modified after staging.
type CommitPlan struct {
	Fingerprint string
	Stages      []Stage
}

// TotalRecords counts records across all stages.
func (p *CommitPlan) TotalRecords() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Records)
	}
	return n
}

// ImportService runs imports end to end against a detection service and a
// store.
type ImportService struct {
	detector    *detect.Service
	store       repository.Store
	metrics     *metrics.Metrics
	maxErrorPct float64
	logger      *slog.Logger
}

// NewImportService builds the orchestrator.
func NewImportService(detector *detect.Service, store repository.Store, logger *slog.Logger) *ImportService {
	return &ImportService{
		detector:    detector,
		store:       store,
		maxErrorPct: DefaultMaxErrorPercentage,
		logger:      logger,
	}
}

// WithMetrics attaches Prometheus collectors.
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithMaxErrorPercentage overrides the pre-commit error budget.
func (s *ImportService) WithMaxErrorPercentage(pct float64) *ImportService {
	s.maxErrorPct = pct
	return s
}

// Analyze runs detection and previews extraction for every confident
// candidate. Nothing is written.
func (s *ImportService) Analyze(ctx context.Context, ds *dataset.Dataset) (*Analysis, error) {
	plan, err := s.detector.DetectAll(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", ds.SourceName, err)
	}

	previews := make(map[string]*extractor.Result)
	for _, cand := range plan.Confident() {
		ext, ok := s.detector.Extractor(cand.Extractor)
		if !ok {
			continue
		}
		result, err := ext.Extract(ctx, ds, cand.Mapping)
		if err != nil {
			return nil, fmt.Errorf("preview extraction with %s: %w", cand.Extractor, err)
		}
		previews[cand.Extractor] = result

		if s.metrics != nil {
			s.metrics.DetectionConfidence.WithLabelValues(cand.Extractor).Observe(cand.Confidence)
		}
	}

	return &Analysis{Plan: plan, Previews: previews}, nil
}

// Run imports a dataset: detect (or force), extract, stage, and commit every
// staged record inside one transaction. The returned batch reflects the final
// state even when the run failed.
func (s *ImportService) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*batch.ImportBatch, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Name == "" {
		opts.Name = ds.SourceName
	}

	selected, err := s.selectExtractors(ctx, ds, opts)
	if err != nil {
		return nil, err
	}

	b := batch.New(opts.Name, ds.SourceName)
	b.Fingerprint = ds.Fingerprint
	b.TotalRows = ds.RowCount()

	store := s.store
	if opts.DryRun {
		store = repository.NewMemoryStore()
	}
	if err := store.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	b.Start()
	if err := store.UpdateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("start batch: %w", err)
	}

	for _, sel := range selected {
		if s.metrics != nil {
			s.metrics.ImportsStarted.WithLabelValues(sel.ext.Name()).Inc()
		}
	}
	started := time.Now()

	plan, err := s.stagePlan(ctx, ds, selected, b)
	if err != nil {
		return s.failBatch(ctx, store, b, selected, err)
	}

	if exceeded, pct := s.errorBudgetExceeded(b); exceeded {
		err := fmt.Errorf("error budget exceeded: %.1f%% of rows failed (limit %.1f%%)", pct, s.maxErrorPct)
		return s.failBatch(ctx, store, b, selected, err)
	}

	err = store.WithTx(ctx, func(tx repository.Store) error {
		return s.commit(ctx, tx, plan, selected, b, opts.BatchSize)
	})
	if err != nil {
		return s.failBatch(ctx, store, b, selected, fmt.Errorf("commit: %w", err))
	}

	b.Complete()
	if err := store.UpdateBatch(ctx, b); err != nil {
		return b, fmt.Errorf("finalize batch: %w", err)
	}

	if s.metrics != nil {
		for _, sel := range selected {
			s.metrics.ImportsCompleted.WithLabelValues(sel.ext.Name()).Inc()
			s.metrics.RowsProcessed.WithLabelValues(sel.ext.Name()).Add(float64(b.TotalRows))
		}
		s.metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}

	s.logger.Info("import completed",
		slog.String("batch_id", b.ID.String()),
		slog.String("source", ds.SourceName),
		slog.Int("created", b.CreatedCount),
		slog.Int("found", b.FoundCount),
		slog.Int("updated", b.UpdatedCount),
		slog.Int("errors", b.ErrorCount),
		slog.Bool("dry_run", opts.DryRun))

	return b, nil
}

// Rollback deletes exactly the entities a terminal batch created and marks it
// rolled back. Returns per-entity-type delete counts.
func (s *ImportService) Rollback(ctx context.Context, batchID uuid.UUID) (map[string]int, error) {
	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	if !b.CanRollback() {
		return nil, fmt.Errorf("%w: status %s", ErrNotRollbackable, b.Status)
	}

	var counts map[string]int
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var txErr error
		counts, txErr = tx.DeleteByBatch(ctx, batchID)
		if txErr != nil {
			return txErr
		}
		b.MarkRolledBack()
		return tx.UpdateBatch(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback batch %s: %w", batchID, err)
	}

	if s.metrics != nil {
		s.metrics.ImportsRolledBack.Inc()
	}
	s.logger.Info("batch rolled back",
		slog.String("batch_id", batchID.String()),
		slog.Any("deleted", counts))

	return counts, nil
}

// Status returns the batch snapshot.
func (s *ImportService) Status(ctx context.Context, batchID uuid.UUID) (*batch.ImportBatch, error) {
	return s.store.GetBatch(ctx, batchID)
}

type selection struct {
	ext     extractor.Extractor
	mapping extractor.Mapping
}

// selectExtractors resolves which extractors run, in priority order.
func (s *ImportService) selectExtractors(ctx context.Context, ds *dataset.Dataset, opts Options) ([]selection, error) {
	if opts.ForceExtractor != "" {
		ext, ok := s.detector.Extractor(opts.ForceExtractor)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownExtractor, opts.ForceExtractor)
		}
		plan, err := s.detector.DetectAll(ctx, ds)
		if err != nil {
			return nil, err
		}
		mapping := extractor.Mapping{}
		if cand, ok := plan.Candidate(opts.ForceExtractor); ok {
			mapping = cand.Mapping
		} else if len(plan.Candidates) > 0 {
			mapping = plan.Candidates[0].Mapping
		}
		return []selection{{ext: ext, mapping: mapping}}, nil
	}

	plan, err := s.detector.DetectAll(ctx, ds)
	if err != nil {
		return nil, err
	}

	threshold := plan.Threshold
	if opts.MinConfidence > 0 {
		threshold = opts.MinConfidence
	}

	var selected []selection
	for _, cand := range plan.Candidates {
		if cand.Confidence < threshold {
			continue
		}
		ext, ok := s.detector.Extractor(cand.Extractor)
		if !ok {
			continue
		}
		selected = append(selected, selection{ext: ext, mapping: cand.Mapping})

		if s.metrics != nil {
			s.metrics.DetectionConfidence.WithLabelValues(cand.Extractor).Observe(cand.Confidence)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoConfidentMatch, ds.SourceName)
	}

	sort.SliceStable(selected, func(a, b int) bool {
		return selected[a].ext.Priority() < selected[b].ext.Priority()
	})
	return selected, nil
}

// stagePlan runs extraction for every selected extractor and folds issues
// into the batch. Hard extraction failures abort staging.
func (s *ImportService) stagePlan(ctx context.Context, ds *dataset.Dataset, selected []selection, b *batch.ImportBatch) (*CommitPlan, error) {
	plan := &CommitPlan{Fingerprint: ds.Fingerprint}

	for _, sel := range selected {
		result, err := sel.ext.Extract(ctx, ds, sel.mapping)
		if err != nil {
			return nil, fmt.Errorf("extract with %s: %w", sel.ext.Name(), err)
		}

		// Only hard errors count against the error budget. Conflicts and
		// warnings are surfaced but never fail a run on their own.
		for _, issue := range result.Issues {
			if issue.Severity == extractor.SeverityError {
				b.AddError(issue.Row, issue.Code, issue.Message)
				continue
			}
			s.logger.Warn("extraction issue",
				slog.String("extractor", sel.ext.Name()),
				slog.String("severity", string(issue.Severity)),
				slog.String("code", issue.Code),
				slog.String("message", issue.Message))
		}

		plan.Stages = append(plan.Stages, Stage{
			Extractor: sel.ext.Name(),
			Priority:  sel.ext.Priority(),
			Records:   result.Records,
			Issues:    result.Issues,
		})
	}

	return plan, nil
}

// commit reconciles every staged record inside the supplied transactional
// store, in stage order, chunked by batchSize.
func (s *ImportService) commit(ctx context.Context, tx repository.Store, plan *CommitPlan, selected []selection, b *batch.ImportBatch, batchSize int) error {
	byName := make(map[string]extractor.Extractor, len(selected))
	for _, sel := range selected {
		byName[sel.ext.Name()] = sel.ext
	}

	for _, stage := range plan.Stages {
		ext := byName[stage.Extractor]
		var stageCounts extractor.Counts

		for start := 0; start < len(stage.Records); start += batchSize {
			end := start + batchSize
			if end > len(stage.Records) {
				end = len(stage.Records)
			}
			counts, err := ext.CreateEntities(ctx, stage.Records[start:end], b, tx)
			if err != nil {
				return fmt.Errorf("%s: %w", stage.Extractor, err)
			}
			stageCounts.Add(counts)
		}

		b.CreatedCount += stageCounts.Created
		b.FoundCount += stageCounts.Found
		b.UpdatedCount += stageCounts.Updated
		b.AddEntityCount(stage.Extractor+"_created", stageCounts.Created)
		b.AddEntityCount(stage.Extractor+"_found", stageCounts.Found)
		b.AddEntityCount(stage.Extractor+"_updated", stageCounts.Updated)

		if s.metrics != nil {
			for _, rec := range stage.Records {
				s.metrics.EntitiesCreated.WithLabelValues(string(rec.Type)).Inc()
			}
		}
	}

	return nil
}

// errorBudgetExceeded checks staged row errors against the configured
// percentage of total rows.
func (s *ImportService) errorBudgetExceeded(b *batch.ImportBatch) (bool, float64) {
	if b.TotalRows == 0 || b.ErrorCount == 0 {
		return false, 0
	}
	pct := float64(b.ErrorCount) * 100 / float64(b.TotalRows)
	return pct > s.maxErrorPct, pct
}

// failBatch marks the batch failed, persists the state, and reports the
// original error.
func (s *ImportService) failBatch(ctx context.Context, store repository.Store, b *batch.ImportBatch, selected []selection, cause error) (*batch.ImportBatch, error) {
	b.Fail()
	if err := store.UpdateBatch(ctx, b); err != nil {
		s.logger.Error("failed to persist batch failure",
			slog.String("batch_id", b.ID.String()),
			slog.String("error", err.Error()))
	}

	if s.metrics != nil {
		for _, sel := range selected {
			s.metrics.ImportsFailed.WithLabelValues(sel.ext.Name()).Inc()
		}
	}

	s.logger.Error("import failed",
		slog.String("batch_id", b.ID.String()),
		slog.String("source", b.SourceName),
		slog.String("error", cause.Error()))

	return b, cause
}
