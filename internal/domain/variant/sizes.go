package variant

import "strings"

// Size is a recognized size pattern resolved to its canonical name.
type Size struct {
	Code  string // the form that appeared in the label, e.g. "Sm"
	Name  string // canonical name, e.g. "Small"
	Order int    // display sort order, lower = smaller
}

type sizePattern struct {
	pattern string
	name    string
	order   int
}

// sizePatterns maps label fragments to canonical sizes. Longer patterns come
// first so "Extra Small" never half-matches as "Small".
var sizePatterns = []sizePattern{
	{"Extra Small", "Extra Small", 1},
	{"Extra Large", "Extra Large", 6},
	{"Extra-Small", "Extra Small", 1},
	{"Extra-Large", "Extra Large", 6},
	{"X-Small", "Extra Small", 1},
	{"X-Large", "Extra Large", 6},

	{"Small", "Small", 2},
	{"Medium", "Medium", 3},
	{"Large", "Large", 4},
	{"Regular", "Regular", 3},

	{"XSm", "Extra Small", 1},
	{"XS", "Extra Small", 1},
	{"Sm", "Small", 2},
	{"Md", "Medium", 3},
	{"Med", "Medium", 3},
	{"Rg", "Regular", 3},
	{"Reg", "Regular", 3},
	{"Lg", "Large", 4},
	{"XL", "Extra Large", 6},
	{"XLg", "Extra Large", 6},
	{"XXL", "2X Large", 7},

	{"S", "Small", 2},
	{"M", "Medium", 3},
	{"L", "Large", 4},
	{"R", "Regular", 3},
}

// MatchSize resolves a candidate fragment against the size table with a
// case-insensitive exact comparison.
func MatchSize(candidate string) (Size, bool) {
	candidate = strings.TrimSpace(candidate)
	for _, p := range sizePatterns {
		if strings.EqualFold(candidate, p.pattern) {
			return Size{Code: candidate, Name: p.name, Order: p.order}, true
		}
	}
	return Size{}, false
}

// portionMultipliers scales recipe/portion quantities per canonical size.
var portionMultipliers = map[string]float64{
	"Extra Small": 0.5,
	"Small":       0.75,
	"Regular":     1.0,
	"Medium":      1.0,
	"Large":       1.25,
	"Extra Large": 1.5,
	"2X Large":    2.0,
}

// PortionMultiplier returns the portion scaling factor for a canonical size
// name, defaulting to 1.0 for unknown sizes.
func PortionMultiplier(sizeName string) float64 {
	if m, ok := portionMultipliers[sizeName]; ok {
		return m
	}
	return 1.0
}
