// Package variant detects size patterns in product labels and infers the
// base-product + size-variant structure behind them. "Latte Sm", "Latte Lg"
// and "Latte Rg" become one Latte with three size variants instead of three
// unrelated products.
package variant

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Phrases that look like sizes but are not. A label containing any of these
// is never split.
var sizeExclusions = []string{
	"wholesale", "resale", "original", "special", "minimal",
	"normal", "formal", "optimal", "regional", "seasonal",
	"small plates", "large format", "medium roast",
}

// Delimiters between base name and size, tried in order. The trailing
// fragment must match the size table exactly. Plain spaces are handled by the
// graded suffix pass instead, which carries the single-letter safety rule.
var delimiters = []string{" - ", " – ", " — ", " | ", ", "}

// Inference is the outcome of analyzing one label.
type Inference struct {
	BaseName     string
	Size         *Size // nil when no size was detected
	OriginalName string
	Confidence   float64
}

// Sized reports whether a size was detected.
func (in Inference) Sized() bool { return in.Size != nil }

// Variant is one label inside a Group.
type Variant struct {
	Name string
	Size *Size
}

// Group collects all labels that share a base product.
type Group struct {
	BaseName string
	Key      string
	IsSized  bool // true only when more than one sized variant exists
	Variants []Variant
}

// SizedCount returns the number of variants that carry a size.
func (g *Group) SizedCount() int {
	n := 0
	for _, v := range g.Variants {
		if v.Size != nil {
			n++
		}
	}
	return n
}

// DatasetAnalysis summarizes size structure across a whole label set.
type DatasetAnalysis struct {
	TotalProducts    int
	UniqueBases      int
	SizedProducts    int
	UnsizedProducts  int
	SizeDistribution map[string]int // keyed by size code as written in the labels
	Groups           []*Group
}

// Inferencer detects size suffixes in labels. Safe for concurrent use.
type Inferencer struct {
	exclusions *ahocorasick.Matcher
}

// NewInferencer builds an inferencer with the default exclusion phrases.
func NewInferencer() *Inferencer {
	patterns := make([][]byte, len(sizeExclusions))
	for i, p := range sizeExclusions {
		patterns[i] = []byte(p)
	}
	return &Inferencer{exclusions: ahocorasick.NewMatcher(patterns)}
}

// Infer analyzes a single label.
func (inf *Inferencer) Infer(label string) Inference {
	trimmed := strings.TrimSpace(label)

	if inf.isExcluded(trimmed) {
		return noSize(label, trimmed)
	}

	for _, delim := range delimiters {
		if res, ok := splitOnDelimiter(trimmed, delim); ok {
			res.OriginalName = label
			return res
		}
	}

	if res, ok := splitOnSuffix(trimmed); ok {
		res.OriginalName = label
		return res
	}

	return noSize(label, trimmed)
}

// GroupByBase groups labels by their inferred base product. Groups are
// returned in first-appearance order; variants inside a group are sorted by
// size order with input order breaking ties.
func (inf *Inferencer) GroupByBase(labels []string) []*Group {
	var order []string
	byKey := make(map[string]*Group)

	for _, label := range labels {
		in := inf.Infer(label)
		key := NormalizeKey(in.BaseName)

		g, ok := byKey[key]
		if !ok {
			g = &Group{BaseName: in.BaseName, Key: key}
			byKey[key] = g
			order = append(order, key)
		}
		g.Variants = append(g.Variants, Variant{Name: in.OriginalName, Size: in.Size})
	}

	groups := make([]*Group, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		g.IsSized = g.SizedCount() > 1
		sort.SliceStable(g.Variants, func(i, j int) bool {
			return variantOrder(g.Variants[i]) < variantOrder(g.Variants[j])
		})
		groups = append(groups, g)
	}
	return groups
}

// AnalyzeDataset produces size diagnostics for a whole label set, useful for
// showing what the import is about to do.
func (inf *Inferencer) AnalyzeDataset(labels []string) *DatasetAnalysis {
	groups := inf.GroupByBase(labels)

	dist := make(map[string]int)
	sized := 0
	unsized := 0
	for _, g := range groups {
		for _, v := range g.Variants {
			if v.Size != nil {
				sized++
				dist[v.Size.Code]++
			} else {
				unsized++
			}
		}
	}

	return &DatasetAnalysis{
		TotalProducts:    len(labels),
		UniqueBases:      len(groups),
		SizedProducts:    sized,
		UnsizedProducts:  unsized,
		SizeDistribution: dist,
		Groups:           groups,
	}
}

func (inf *Inferencer) isExcluded(label string) bool {
	return len(inf.exclusions.Match([]byte(strings.ToLower(label)))) > 0
}

// splitOnDelimiter splits on the last occurrence of delim and matches the
// trailing fragment against the size table.
func splitOnDelimiter(label, delim string) (Inference, bool) {
	idx := strings.LastIndex(label, delim)
	if idx < 0 {
		return Inference{}, false
	}

	tail := strings.TrimSpace(label[idx+len(delim):])
	size, ok := MatchSize(tail)
	if !ok {
		return Inference{}, false
	}

	return Inference{
		BaseName:   strings.TrimSpace(label[:idx]),
		Size:       &size,
		Confidence: 0.9,
	}, true
}

// splitOnSuffix matches the last whitespace-separated token against the size
// table. Confidence grades by token length; a single-letter size is rejected
// outright when fewer than two words remain in the base.
func splitOnSuffix(label string) (Inference, bool) {
	words := strings.Fields(label)
	if len(words) < 2 {
		return Inference{}, false
	}

	last := words[len(words)-1]
	size, ok := MatchSize(last)
	if !ok {
		return Inference{}, false
	}

	rest := words[:len(words)-1]
	if len(last) == 1 && len(rest) < 2 {
		return Inference{}, false
	}

	confidence := 0.6
	switch {
	case len(last) >= 5:
		confidence = 0.95
	case len(last) >= 2:
		confidence = 0.85
	}

	return Inference{
		BaseName:   strings.Join(rest, " "),
		Size:       &size,
		Confidence: confidence,
	}, true
}

func noSize(original, trimmed string) Inference {
	return Inference{
		BaseName:     trimmed,
		Size:         nil,
		OriginalName: original,
		Confidence:   1.0,
	}
}

func variantOrder(v Variant) int {
	if v.Size == nil {
		return 999
	}
	return v.Size.Order
}

// NormalizeKey folds a name into a stable grouping key: lowercase with runs
// of non-alphanumerics collapsed to single dashes.
func NormalizeKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))

	var b strings.Builder
	b.Grow(len(value))
	lastDash := false
	for _, r := range value {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
