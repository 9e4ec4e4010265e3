package extractor

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/counterworks/pos-import/internal/domain/headermatch"
	"github.com/counterworks/pos-import/pkg/money"
)

// normalizeHeaders maps normalized header names to their column indices,
// first occurrence wins.
func normalizeHeaders(headers []string) map[string]int {
	norm := make(map[string]int, len(headers))
	for i, h := range headers {
		key := headermatch.Normalize(h)
		if key == "" {
			continue
		}
		if _, seen := norm[key]; !seen {
			norm[key] = i
		}
	}
	return norm
}

// hasHeader reports whether a candidate column name is present, by exact
// normalized match or containment in either direction: a bare "name" header
// satisfies a "customer_name" candidate. Column resolution (findHeader) stays
// one-directional.
func hasHeader(norm map[string]int, candidate string) bool {
	target := headermatch.Normalize(candidate)
	if target == "" {
		return false
	}
	if _, ok := norm[target]; ok {
		return true
	}
	for key := range norm {
		if strings.Contains(key, target) || strings.Contains(target, key) {
			return true
		}
	}
	return false
}

// hasAnyHeader reports whether any of the candidates is present.
func hasAnyHeader(norm map[string]int, candidates []string) bool {
	for _, c := range candidates {
		if hasHeader(norm, c) {
			return true
		}
	}
	return false
}

// findHeader resolves a candidate column name to a column index: exact
// normalized match first, then containment. Containment scans keys in
// deterministic order (smallest index wins).
func findHeader(norm map[string]int, candidate string) (int, bool) {
	target := headermatch.Normalize(candidate)
	if target == "" {
		return 0, false
	}
	if idx, ok := norm[target]; ok {
		return idx, true
	}

	best := -1
	for key, idx := range norm {
		if strings.Contains(key, target) && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best >= 0 {
		return best, true
	}
	return 0, false
}

// FindColumn resolves the first matching candidate to a column index.
func FindColumn(headers []string, candidates ...string) (int, bool) {
	norm := normalizeHeaders(headers)
	for _, c := range candidates {
		if idx, ok := findHeader(norm, c); ok {
			return idx, true
		}
	}
	return 0, false
}

// cell returns the trimmed value at idx, or "" when idx is out of range or
// negative.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// numericCell parses the value at idx as a decimal. The money parser handles
// the common export shapes (symbols, separators, accounting negatives); the
// character-strip fallback salvages cells with trailing junk like "4.50 USD".
// ok is false for empty or unparseable values.
func numericCell(row []string, idx int) (decimal.Decimal, bool) {
	raw := cell(row, idx)
	if raw == "" {
		return decimal.Zero, false
	}

	if d, err := money.Parse(raw, false); err == nil {
		return d, true
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeKey folds a value for deduplication comparisons.
func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// slugify turns a name into a dash-separated slug.
func slugify(value string) string {
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
