package extractor

import (
	"github.com/shopspring/decimal"
)

// EntityType identifies what a Record describes.
type EntityType string

const (
	EntitySellable EntityType = "sellable"
	EntityVariant  EntityType = "variant"
	EntityCustomer EntityType = "customer"
	EntityLocation EntityType = "location"
)

// Severity grades extraction issues. Warnings never block. Conflicts block
// silent overwrite of the affected record at create time. Errors are hard:
// any one of them fails the whole batch under all-or-nothing commit.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityConflict Severity = "conflict"
	SeverityError    Severity = "error"
)

// Issue is one problem surfaced during extraction.
type Issue struct {
	Severity  Severity
	Code      string
	Message   string
	RecordKey string
	Row       int // 1-based data row, 0 when not row-specific
}

// SellableRecord is the typed payload for a base product.
type SellableRecord struct {
	Name        string
	Slug        string
	SKU         string
	Category    string
	Description string
	ProductType string
	BasePrice   decimal.Decimal
	HasPrice    bool
}

// VariantRecord is the typed payload for one size of a base product.
// PriceAdjustment is nil when the variant or its base has no observed price;
// an unknown adjustment is not the same as a 0.00 one.
type VariantRecord struct {
	BaseKey           string // Key of the owning sellable record
	BaseName          string
	Name              string
	SizeCode          string
	SizeName          string
	SortOrder         int
	PriceAdjustment   *decimal.Decimal
	PortionMultiplier float64
	SKU               string
}

// CustomerRecord is the typed payload for a customer.
type CustomerRecord struct {
	Name     string
	Email    string
	Phone    string
	Mode     string
	Platform string
	Fallback bool
	RowCount int
}

// LocationRecord is the typed payload for a location.
type LocationRecord struct {
	Name       string
	Type       string
	ExternalID string
	Address    string
	City       string
	Zip        string
	RowCount   int
}

// Record is one extracted entity. Exactly one payload pointer is set,
// matching Type. Meta is a provenance side-channel (source rows, raw labels,
// inference confidence); it never carries core fields.
type Record struct {
	Key      string
	Type     EntityType
	Sellable *SellableRecord
	Variant  *VariantRecord
	Customer *CustomerRecord
	Location *LocationRecord
	Meta     map[string]string
}

// Result is the outcome of one extractor's Extract pass. Treat it as
// immutable: the With* and Merge helpers return copies and the originals are
// never modified.
type Result struct {
	Records  []Record
	Issues   []Issue
	Metadata map[string]string
}

// NewResult builds a result over an ordered record list.
func NewResult(records []Record) *Result {
	return &Result{Records: records, Metadata: make(map[string]string)}
}

// Warnings returns the warning-severity issues.
func (r *Result) Warnings() []Issue { return r.bySeverity(SeverityWarning) }

// Conflicts returns the conflict-severity issues.
func (r *Result) Conflicts() []Issue { return r.bySeverity(SeverityConflict) }

// Errors returns the hard errors.
func (r *Result) Errors() []Issue { return r.bySeverity(SeverityError) }

func (r *Result) bySeverity(s Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == s {
			out = append(out, issue)
		}
	}
	return out
}

// WithIssue returns a copy carrying an extra issue.
func (r *Result) WithIssue(issue Issue) *Result {
	c := r.clone()
	c.Issues = append(c.Issues, issue)
	return c
}

// WithMetadata returns a copy carrying an extra metadata entry.
func (r *Result) WithMetadata(key, value string) *Result {
	c := r.clone()
	c.Metadata[key] = value
	return c
}

// Merge returns a new result combining both record lists and issue sets.
// Record order is r's records followed by other's.
func (r *Result) Merge(other *Result) *Result {
	c := r.clone()
	c.Records = append(c.Records, other.Records...)
	c.Issues = append(c.Issues, other.Issues...)
	for k, v := range other.Metadata {
		c.Metadata[k] = v
	}
	return c
}

func (r *Result) clone() *Result {
	c := &Result{
		Records:  make([]Record, len(r.Records)),
		Issues:   make([]Issue, len(r.Issues)),
		Metadata: make(map[string]string, len(r.Metadata)),
	}
	copy(c.Records, r.Records)
	copy(c.Issues, r.Issues)
	for k, v := range r.Metadata {
		c.Metadata[k] = v
	}
	return c
}
