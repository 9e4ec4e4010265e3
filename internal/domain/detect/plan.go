// Package detect ranks registered extractors against a dataset and produces
// an immutable detection plan: who recognized the file, how strongly, and
// which columns map to which canonical fields.
package detect

import (
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/internal/domain/headermatch"
)

// Candidate is one extractor's claim on a dataset.
type Candidate struct {
	Extractor  string
	Confidence float64
	Priority   int
	Mapping    extractor.Mapping
}

// Plan is the outcome of running detection over a dataset. Candidates are
// ranked best first; extractors that scored zero are not listed. Plans are
// value snapshots: nothing mutates them after Detect returns.
type Plan struct {
	SourceName  string
	Fingerprint string
	Headers     []string
	Threshold   float64
	Candidates  []Candidate
	// Suggestions offers likely canonical fields for headers automatic
	// mapping could not place, for operator review.
	Suggestions map[string][]headermatch.Suggestion
}

// Best returns the top candidate that clears the confidence threshold.
func (p *Plan) Best() (Candidate, bool) {
	if len(p.Candidates) == 0 || p.Candidates[0].Confidence < p.Threshold {
		return Candidate{}, false
	}
	return p.Candidates[0], true
}

// Confident returns every candidate at or above the threshold, keeping rank
// order.
func (p *Plan) Confident() []Candidate {
	var out []Candidate
	for _, c := range p.Candidates {
		if c.Confidence >= p.Threshold {
			out = append(out, c)
		}
	}
	return out
}

// Candidate returns the named candidate regardless of rank or threshold.
func (p *Plan) Candidate(name string) (Candidate, bool) {
	for _, c := range p.Candidates {
		if c.Extractor == name {
			return c, true
		}
	}
	return Candidate{}, false
}
