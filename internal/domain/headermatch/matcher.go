// Package headermatch maps messy spreadsheet headers ("Item Name ", "PLU",
// "e-mail") onto the canonical field names extractors understand.
package headermatch

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Matcher resolves header labels to canonical fields. The zero alias set is
// never used directly; NewMatcher seeds the default table. Matchers are
// immutable after construction and safe for concurrent use.
type Matcher struct {
	index   map[string]string   // normalized alias -> canonical field
	aliases map[string][]string // canonical field -> normalized aliases
}

// Suggestion is a fuzzy candidate for an unmatched header.
type Suggestion struct {
	Field string
	Alias string
	Score float64
}

// NewMatcher builds a matcher over the default alias table.
func NewMatcher() *Matcher {
	return NewMatcherWithAliases(nil)
}

// NewMatcherWithAliases builds a matcher over the default table plus extra
// per-field aliases (extra entries win on collision).
func NewMatcherWithAliases(extra map[string][]string) *Matcher {
	m := &Matcher{
		index:   make(map[string]string),
		aliases: make(map[string][]string),
	}
	for field, list := range defaultAliases {
		m.add(field, list)
	}
	for field, list := range extra {
		m.add(field, list)
	}
	return m
}

func (m *Matcher) add(field string, aliases []string) {
	for _, a := range aliases {
		norm := Normalize(a)
		if norm == "" {
			continue
		}
		m.index[norm] = field
		m.aliases[field] = append(m.aliases[field], norm)
	}
}

// Normalize lowercases a header, folds whitespace, dashes and dots into
// underscores, and strips every other non-alphanumeric rune.
func Normalize(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))

	var b strings.Builder
	b.Grow(len(header))
	lastUnderscore := false
	for _, r := range header {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ' || r == '\t' || r == '-' || r == '.' || r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// Match resolves a header to its canonical field by exact normalized alias.
func (m *Matcher) Match(header string) (string, bool) {
	field, ok := m.index[Normalize(header)]
	return field, ok
}

// MatchAll maps canonical fields to column indices, first occurrence wins.
func (m *Matcher) MatchAll(headers []string) map[string]int {
	out := make(map[string]int)
	for i, h := range headers {
		if field, ok := m.Match(h); ok {
			if _, seen := out[field]; !seen {
				out[field] = i
			}
		}
	}
	return out
}

// suggestThreshold is the minimum fuzzy score worth surfacing.
const suggestThreshold = 0.3

// Suggest returns up to k ranked candidates for a header that has no exact
// alias. Ordering is deterministic: score desc, then field name asc.
func (m *Matcher) Suggest(header string, k int) []Suggestion {
	norm := Normalize(header)
	if norm == "" || k <= 0 {
		return nil
	}

	best := make(map[string]Suggestion)
	for field, aliases := range m.aliases {
		for _, alias := range aliases {
			score := aliasScore(norm, alias)
			if score < suggestThreshold {
				continue
			}
			if cur, ok := best[field]; !ok || score > cur.Score {
				best[field] = Suggestion{Field: field, Alias: alias, Score: score}
			}
		}
	}

	out := make([]Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Field < out[j].Field
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// aliasScore rates how closely a normalized header resembles an alias.
func aliasScore(header, alias string) float64 {
	if header == alias {
		return 1.0
	}

	score := 0.0

	// Containment either way, weighted by length ratio.
	if strings.Contains(header, alias) || strings.Contains(alias, header) {
		shorter, longer := len(alias), len(header)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if s := 0.7 * float64(shorter) / float64(longer); s > score {
			score = s
		}
	}

	// Close edit distance catches typos and singular/plural drift.
	maxLen := len(header)
	if len(alias) > maxLen {
		maxLen = len(alias)
	}
	if d := levenshteinDistance(header, alias); d <= 3 && maxLen > 0 {
		if s := 1.0 - float64(d)/float64(maxLen); s > score {
			score = s
		}
	}

	// Bigram overlap for reordered or partially shared words.
	if s := 0.75 * diceCoefficient(header, alias); s > score {
		score = s
	}

	// Subsequence rank as a weak last resort.
	if score == 0 {
		if rank := fuzzy.RankMatch(alias, header); rank >= 0 {
			score = 0.35
		}
	}

	return score
}

// diceCoefficient computes bigram overlap between two strings.
func diceCoefficient(a, b string) float64 {
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}

	matches := 0
	for i := 0; i < len(b)-1; i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			matches++
		}
	}

	return 2.0 * float64(matches) / float64(len(a)+len(b)-2)
}

// levenshteinDistance computes edit distance with the two-row method.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
