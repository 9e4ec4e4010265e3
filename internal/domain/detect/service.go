package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/internal/domain/headermatch"
)

// DefaultMinConfidence is the score below which a candidate is not considered
// a usable match.
const DefaultMinConfidence = 0.3

// Service runs detection across explicitly registered extractors. Extractors
// participate only after Register; nothing is discovered implicitly, so two
// services built from the same registrations always agree.
type Service struct {
	extractors []extractor.Extractor
	byName     map[string]extractor.Extractor
	matcher    *headermatch.Matcher
	minConf    float64
	logger     *slog.Logger
}

// NewService builds a detection service with the default confidence
// threshold.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		byName:  make(map[string]extractor.Extractor),
		matcher: headermatch.NewMatcher(),
		minConf: DefaultMinConfidence,
		logger:  logger,
	}
}

// WithMinConfidence overrides the confidence threshold.
func (s *Service) WithMinConfidence(min float64) *Service {
	s.minConf = min
	return s
}

// Register adds an extractor. Registration order is the final ranking
// tiebreaker, so callers should register in a fixed order. Duplicate names
// are rejected.
func (s *Service) Register(ext extractor.Extractor) error {
	name := ext.Name()
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("extractor %q is already registered", name)
	}
	s.byName[name] = ext
	s.extractors = append(s.extractors, ext)
	return nil
}

// Extractor returns a registered extractor by name.
func (s *Service) Extractor(name string) (extractor.Extractor, bool) {
	ext, ok := s.byName[name]
	return ext, ok
}

// Extractors returns the registered extractors in registration order.
func (s *Service) Extractors() []extractor.Extractor {
	out := make([]extractor.Extractor, len(s.extractors))
	copy(out, s.extractors)
	return out
}

// DetectAll scores every registered extractor against the dataset and returns a
// ranked plan. Extractors run concurrently; ranking is still deterministic:
// confidence descending, then priority ascending, then registration order.
func (s *Service) DetectAll(ctx context.Context, ds *dataset.Dataset) (*Plan, error) {
	sample := ds.Sample(dataset.DefaultSampleSize)

	type outcome struct {
		score float64
		err   error
	}
	outcomes := make([]outcome, len(s.extractors))

	var wg sync.WaitGroup
	for i, ext := range s.extractors {
		wg.Add(1)
		go func(i int, ext extractor.Extractor) {
			defer wg.Done()
			score, err := ext.Detect(ctx, ds.Headers, sample)
			outcomes[i] = outcome{score: score, err: err}
		}(i, ext)
	}
	wg.Wait()

	mapping := s.fieldMapping(ds.Headers)

	var candidates []Candidate
	regOrder := make(map[string]int, len(s.extractors))
	for i, ext := range s.extractors {
		regOrder[ext.Name()] = i

		if outcomes[i].err != nil {
			return nil, fmt.Errorf("detection failed for %s: %w", ext.Name(), outcomes[i].err)
		}
		if outcomes[i].score <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Extractor:  ext.Name(),
			Confidence: outcomes[i].score,
			Priority:   ext.Priority(),
			Mapping:    cloneMapping(mapping),
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.Confidence != cb.Confidence {
			return ca.Confidence > cb.Confidence
		}
		if ca.Priority != cb.Priority {
			return ca.Priority < cb.Priority
		}
		return regOrder[ca.Extractor] < regOrder[cb.Extractor]
	})

	plan := &Plan{
		SourceName:  ds.SourceName,
		Fingerprint: ds.Fingerprint,
		Headers:     append([]string(nil), ds.Headers...),
		Threshold:   s.minConf,
		Candidates:  candidates,
		Suggestions: s.suggestUnmapped(ds.Headers, mapping),
	}

	if best, ok := plan.Best(); ok {
		s.logger.Info("dataset detected",
			slog.String("source", ds.SourceName),
			slog.String("extractor", best.Extractor),
			slog.Float64("confidence", best.Confidence))
	} else {
		s.logger.Warn("no extractor recognized dataset",
			slog.String("source", ds.SourceName),
			slog.Int("candidates", len(candidates)))
	}

	return plan, nil
}

// fieldMapping maps canonical fields to column indices via the alias matcher.
func (s *Service) fieldMapping(headers []string) extractor.Mapping {
	out := make(extractor.Mapping)
	for field, idx := range s.matcher.MatchAll(headers) {
		out[field] = idx
	}
	return out
}

// suggestUnmapped proposes fields for headers the alias matcher left
// unmapped.
func (s *Service) suggestUnmapped(headers []string, mapping extractor.Mapping) map[string][]headermatch.Suggestion {
	mapped := make(map[int]struct{}, len(mapping))
	for _, idx := range mapping {
		mapped[idx] = struct{}{}
	}

	out := make(map[string][]headermatch.Suggestion)
	for i, h := range headers {
		if _, ok := mapped[i]; ok {
			continue
		}
		if suggestions := s.matcher.Suggest(h, 3); len(suggestions) > 0 {
			out[h] = suggestions
		}
	}
	return out
}

func cloneMapping(m extractor.Mapping) extractor.Mapping {
	out := make(extractor.Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
