// Package extractor defines the capability contract for entity extractors
// and the shared detection and parsing machinery they build on. An extractor
// can say how confident it is about a dataset (Detect), turn rows into typed
// records (Extract), and reconcile those records against the store
// (CreateEntities).
package extractor

import (
	"context"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
)

// Mapping maps canonical field names to column indices.
type Mapping map[string]int

// Counts reports reconciliation outcomes from CreateEntities.
type Counts struct {
	Created int
	Found   int
	Updated int
}

// Add accumulates another count set.
func (c *Counts) Add(other Counts) {
	c.Created += other.Created
	c.Found += other.Found
	c.Updated += other.Updated
}

// Total returns all reconciled records.
func (c Counts) Total() int { return c.Created + c.Found + c.Updated }

// Extractor is the capability contract every entity extractor implements.
//
// Detect must be pure: same headers and sample always yield the same score,
// in [0,1]. Extract must be deterministic and total: it never aborts on a
// bad row; it records an Issue and keeps going. CreateEntities is idempotent:
// natural key first, exact name second, create last.
type Extractor interface {
	Name() string
	// Priority orders extraction when several extractors run: lower runs
	// earlier, so dependencies (locations) resolve before dependents.
	Priority() int
	Detect(ctx context.Context, headers []string, sample [][]string) (float64, error)
	Extract(ctx context.Context, ds *dataset.Dataset, mapping Mapping) (*Result, error)
	CreateEntities(ctx context.Context, records []Record, b *batch.ImportBatch, store repository.Store) (Counts, error)
}

// Profile declares the header shape an extractor recognizes. RequiredGroups
// hold alternative column names: a group is satisfied when any candidate
// appears (exact normalized match or containment in either direction).
// Indicators are columns that strengthen confidence without being required.
type Profile struct {
	RequiredGroups [][]string
	Indicators     []string
}

// ScoreHeaders implements the shared detection scoring: each satisfied
// required group is worth 0.4/len(groups) and at least one group must be
// satisfied for a nonzero score; indicators contribute 0.5 scaled by the
// matched fraction; dataScore lets an extractor add content-based signal.
// The result is capped at 1.0.
func ScoreHeaders(headers []string, p Profile, dataScore float64) float64 {
	norm := normalizeHeaders(headers)

	score := 0.0
	anyGroup := false
	for _, group := range p.RequiredGroups {
		if hasAnyHeader(norm, group) {
			anyGroup = true
			score += 0.4 / float64(len(p.RequiredGroups))
		}
	}
	if !anyGroup && len(p.RequiredGroups) > 0 {
		return 0.0
	}

	if len(p.Indicators) > 0 {
		matched := 0
		for _, ind := range p.Indicators {
			if hasHeader(norm, ind) {
				matched++
			}
		}
		score += 0.5 * float64(matched) / float64(len(p.Indicators))
	}

	score += dataScore
	if score > 1.0 {
		score = 1.0
	}
	return score
}
