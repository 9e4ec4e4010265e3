package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"database/sql"

	"github.com/cloudflare/ahocorasick"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
)

// FallbackRecordKey is the record key reserved for the synthetic customer
// that absorbs anonymous transaction rows.
const FallbackRecordKey = "customer:__fallback__"

// platformNames maps a detected ordering platform to the display name of its
// synthetic customer.
var platformNames = map[string]string{
	"shopify":  "Shopify Customer",
	"square":   "Square Customer",
	"toast":    "Toast Customer",
	"clover":   "Clover Customer",
	"doordash": "DoorDash Customer",
	"ubereats": "Uber Eats Customer",
	"grubhub":  "Grubhub Customer",
}

// platformTokens maps substrings worth scanning for to their canonical
// platform key. Order matters for the token list fed to the matcher, so keep
// this table in sync with newPlatformMatcher.
var platformTokens = map[string]string{
	"shopify":   "shopify",
	"square":    "square",
	"toast":     "toast",
	"clover":    "clover",
	"doordash":  "doordash",
	"ubereats":  "ubereats",
	"uber eats": "ubereats",
	"grubhub":   "grubhub",
}

// fallbackDefaults carries the stock name per fallback mode when the caller
// does not supply one.
var fallbackDefaults = map[string]string{
	batch.CustomerModeWalkIn:   "Walk In",
	batch.CustomerModePlatform: "Online Customer",
	batch.CustomerModeEvent:    "Event Sales",
}

// genericCustomerNames are values that look like a customer column entry but
// identify nobody. Rows carrying only these are treated as anonymous.
var genericCustomerNames = map[string]struct{}{
	"guest":         {},
	"walk in":       {},
	"walk-in":       {},
	"walkin":        {},
	"anonymous":     {},
	"cash":          {},
	"cash customer": {},
	"counter":       {},
	"retail":        {},
	"n/a":           {},
	"na":            {},
	"none":          {},
	"unknown":       {},
	"-":             {},
	".":             {},
}

var customerProfile = Profile{
	RequiredGroups: [][]string{
		{"customer", "customer_name", "client", "buyer", "patron"},
		{"order", "order_id", "transaction", "sale", "invoice"},
	},
	Indicators: []string{
		"customer_id", "customer_email", "customer_phone",
		"billing_name", "shipping_name", "contact_name",
		"company", "organization", "account",
	},
}

var (
	customerNameCandidates  = []string{"customer_name", "customer", "client", "buyer", "patron", "billing_name", "contact_name"}
	customerEmailCandidates = []string{"customer_email", "email", "contact_email"}
	customerPhoneCandidates = []string{"customer_phone", "phone", "contact_phone", "telephone"}
	companyCandidates       = []string{"company", "organization", "business", "account"}

	transactionIndicators = []string{
		"order", "order_id", "order_number",
		"transaction", "transaction_id",
		"sale", "sale_id", "invoice", "receipt", "ticket",
	}
	dateIndicators = []string{"date", "order_date", "transaction_date", "sale_date", "created_at"}
)

// transactionOnlyScore is the fixed confidence for datasets that carry
// transaction and date columns but no customer column at all. Such files are
// importable (every row lands on the fallback customer) but should lose any
// ranking tie against an extractor with a direct header match.
const transactionOnlyScore = 0.4

// CustomerOptions tunes how anonymous rows are absorbed.
type CustomerOptions struct {
	// FallbackMode is one of the batch.CustomerMode* values and decides
	// which synthetic customer anonymous rows attach to. CustomerModeNone
	// leaves them unassigned and only emits a warning.
	FallbackMode string
	// FallbackName overrides the stock display name for the fallback
	// customer. Required for CustomerModeNamed.
	FallbackName string
}

// DefaultCustomerOptions assigns anonymous rows to a shared walk-in customer.
func DefaultCustomerOptions() CustomerOptions {
	return CustomerOptions{FallbackMode: batch.CustomerModeWalkIn}
}

// CustomerExtractor recognizes customer lists and customer-bearing
// transaction exports. Identifiable people are deduplicated by email, then by
// normalized name; everything else is folded into a single fallback customer
// according to the configured mode.
type CustomerExtractor struct {
	opts            CustomerOptions
	platformMatcher *ahocorasick.Matcher
	platformByToken []string
	logger          *slog.Logger
}

// NewCustomerExtractor builds a customer extractor with default options.
func NewCustomerExtractor(logger *slog.Logger) *CustomerExtractor {
	return NewCustomerExtractorWithOptions(logger, DefaultCustomerOptions())
}

// NewCustomerExtractorWithOptions builds a customer extractor with explicit
// fallback behavior.
func NewCustomerExtractorWithOptions(logger *slog.Logger, opts CustomerOptions) *CustomerExtractor {
	if opts.FallbackMode == "" {
		opts.FallbackMode = batch.CustomerModeWalkIn
	}

	tokens := make([]string, 0, len(platformTokens))
	for token := range platformTokens {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	byToken := make([]string, len(tokens))
	for i, token := range tokens {
		byToken[i] = platformTokens[token]
	}

	return &CustomerExtractor{
		opts:            opts,
		platformMatcher: ahocorasick.NewStringMatcher(tokens),
		platformByToken: byToken,
		logger:          logger,
	}
}

func (e *CustomerExtractor) Name() string { return "customer" }

func (e *CustomerExtractor) Priority() int { return 30 }

// Detect scores customer files by headers. Files with a customer-ish column
// go through the standard profile scoring. Files with only transaction and
// date columns get a fixed low score: they are still importable through the
// fallback customer, but never outrank a direct match.
func (e *CustomerExtractor) Detect(_ context.Context, headers []string, _ [][]string) (float64, error) {
	norm := normalizeHeaders(headers)

	if hasAnyHeader(norm, customerNameCandidates) || hasAnyHeader(norm, customerEmailCandidates) {
		return ScoreHeaders(headers, customerProfile, 0), nil
	}

	if hasAnyHeader(norm, transactionIndicators) && hasAnyHeader(norm, dateIndicators) {
		return transactionOnlyScore, nil
	}

	return 0.0, nil
}

type rawCustomer struct {
	name     string
	email    string
	phone    string
	company  string
	rowCount int
	firstRow int
}

// Extract deduplicates identifiable customers and accumulates anonymous rows
// into at most one fallback record.
func (e *CustomerExtractor) Extract(_ context.Context, ds *dataset.Dataset, mapping Mapping) (*Result, error) {
	column := func(field string, candidates []string) int {
		if idx, ok := mapping[field]; ok {
			return idx
		}
		if idx, ok := FindColumn(ds.Headers, candidates...); ok {
			return idx
		}
		return -1
	}

	nameCol := column("customer", customerNameCandidates)
	emailCol := column("email", customerEmailCandidates)
	phoneCol := column("phone", customerPhoneCandidates)
	companyCol := column("company", companyCandidates)

	platform := e.detectPlatform(ds)

	byKey := make(map[string]*rawCustomer)
	var order []string
	anonymousCount := 0

	for i, row := range ds.Rows {
		name := cell(row, nameCol)
		email := normalizeKey(cell(row, emailCol))
		phone := cell(row, phoneCol)
		company := cell(row, companyCol)

		if !isIdentifiableCustomer(name, email, phone) {
			anonymousCount++
			continue
		}

		key := customerKey(name, email)
		raw, ok := byKey[key]
		if !ok {
			raw = &rawCustomer{firstRow: i + 1}
			byKey[key] = raw
			order = append(order, key)
		}
		raw.rowCount++
		if raw.name == "" {
			raw.name = name
		}
		if raw.email == "" {
			raw.email = email
		}
		if raw.phone == "" {
			raw.phone = phone
		}
		if raw.company == "" {
			raw.company = company
		}
	}

	records := make([]Record, 0, len(order)+1)
	var issues []Issue

	for _, key := range order {
		raw := byKey[key]
		name := raw.name
		if name == "" {
			name = deriveNameFromEmail(raw.email)
		}

		meta := map[string]string{
			"source_row": strconv.Itoa(raw.firstRow),
			"row_count":  strconv.Itoa(raw.rowCount),
		}
		if raw.company != "" {
			meta["company"] = raw.company
		}

		records = append(records, Record{
			Key:  key,
			Type: EntityCustomer,
			Customer: &CustomerRecord{
				Name:     name,
				Email:    raw.email,
				Phone:    raw.phone,
				Mode:     batch.CustomerModeNamed,
				RowCount: raw.rowCount,
			},
			Meta: meta,
		})
	}

	if anonymousCount > 0 {
		fallback := e.resolveFallback(platform)
		if fallback != nil {
			fallback.RowCount = anonymousCount
			records = append(records, Record{
				Key:      FallbackRecordKey,
				Type:     EntityCustomer,
				Customer: fallback,
				Meta: map[string]string{
					"anonymous_count": strconv.Itoa(anonymousCount),
				},
			})
		} else {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     "anonymous_rows_unassigned",
				Message:  fmt.Sprintf("%d anonymous rows have no fallback customer configured", anonymousCount),
			})
		}
	}

	result := NewResult(records)
	result.Issues = issues
	result.Metadata["customer_count"] = strconv.Itoa(len(order))
	result.Metadata["anonymous_count"] = strconv.Itoa(anonymousCount)
	if platform != "" {
		result.Metadata["detected_platform"] = platform
	}

	e.logger.Debug("customer extraction complete",
		slog.Int("customers", len(order)),
		slog.Int("anonymous_rows", anonymousCount),
		slog.String("platform", platform))

	return result, nil
}

// resolveFallback builds the synthetic customer record for anonymous rows, or
// nil when the configured mode leaves them unassigned.
func (e *CustomerExtractor) resolveFallback(platform string) *CustomerRecord {
	mode := e.opts.FallbackMode

	switch mode {
	case batch.CustomerModeNone:
		return nil
	case batch.CustomerModeNamed:
		name := e.opts.FallbackName
		if name == "" {
			name = "Custom Fallback"
		}
		return &CustomerRecord{Name: name, Mode: mode, Fallback: true}
	case batch.CustomerModePlatform:
		if platform != "" {
			name, ok := platformNames[platform]
			if !ok {
				name = "Platform Customer"
			}
			return &CustomerRecord{Name: name, Mode: mode, Platform: platform, Fallback: true}
		}
	}

	name := e.opts.FallbackName
	if name == "" {
		if def, ok := fallbackDefaults[mode]; ok {
			name = def
		} else {
			mode = batch.CustomerModeWalkIn
			name = fallbackDefaults[mode]
		}
	}
	return &CustomerRecord{Name: name, Mode: mode, Fallback: true}
}

// detectPlatform scans header names and then up to 100 sample rows for an
// ordering platform mention.
func (e *CustomerExtractor) detectPlatform(ds *dataset.Dataset) string {
	joined := strings.ToLower(strings.Join(ds.Headers, " "))
	if hits := e.platformMatcher.Match([]byte(joined)); len(hits) > 0 {
		return e.platformByToken[hits[0]]
	}

	limit := len(ds.Rows)
	if limit > 100 {
		limit = 100
	}
	for _, row := range ds.Rows[:limit] {
		line := strings.ToLower(strings.Join(row, " "))
		if hits := e.platformMatcher.Match([]byte(line)); len(hits) > 0 {
			return e.platformByToken[hits[0]]
		}
	}
	return ""
}

// CreateEntities reconciles customer records: find by email, then by exact
// name, create otherwise. The fallback record goes through the same path so
// repeated imports share one synthetic customer.
func (e *CustomerExtractor) CreateEntities(ctx context.Context, records []Record, b *batch.ImportBatch, store repository.Store) (Counts, error) {
	var counts Counts
	var hardErrs []error

	for _, rec := range records {
		if rec.Type != EntityCustomer || rec.Customer == nil {
			continue
		}
		cr := rec.Customer

		if cr.Name == "" && cr.Email == "" {
			hardErrs = append(hardErrs, fmt.Errorf("customer record %q has neither name nor email", rec.Key))
			continue
		}

		existing, err := e.findCustomer(ctx, store, cr)
		if err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("failed to look up customer %q: %w", rec.Key, err))
			continue
		}
		if existing != nil {
			counts.Found++
			continue
		}

		name := cr.Name
		if name == "" {
			name = deriveNameFromEmail(cr.Email)
		}
		customer := &batch.Customer{
			Name:          name,
			Email:         cr.Email,
			Phone:         cr.Phone,
			Mode:          cr.Mode,
			Platform:      cr.Platform,
			ImportBatchID: &b.ID,
		}
		if err := store.CreateCustomer(ctx, customer); err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("failed to create customer %q: %w", name, err))
			continue
		}
		counts.Created++
	}

	if len(hardErrs) > 0 {
		return counts, errors.Join(hardErrs...)
	}
	return counts, nil
}

func (e *CustomerExtractor) findCustomer(ctx context.Context, store repository.Store, cr *CustomerRecord) (*batch.Customer, error) {
	if cr.Email != "" {
		existing, err := store.FindCustomerByEmail(ctx, cr.Email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	if cr.Name != "" {
		existing, err := store.FindCustomerByName(ctx, cr.Name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, nil
}

// isIdentifiableCustomer reports whether a row points at a real person: a
// non-generic name, a valid email, or a phone number with at least 7 digits.
func isIdentifiableCustomer(name, email, phone string) bool {
	if name != "" && !isGenericCustomerName(name) {
		return true
	}
	if email != "" && isValidEmail(email) {
		return true
	}
	if digitCount(phone) >= 7 {
		return true
	}
	return false
}

func isGenericCustomerName(name string) bool {
	_, generic := genericCustomerNames[normalizeKey(name)]
	return generic
}

// customerKey builds the dedup key: email wins over name.
func customerKey(name, email string) string {
	if email != "" {
		return "email:" + email
	}
	return "name:" + normalizeKey(name)
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// deriveNameFromEmail turns the local part of an email into a display name:
// separators become spaces and each word is title-cased.
func deriveNameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "Unknown Customer"
	}

	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	words := strings.Fields(local)
	if len(words) == 0 {
		return "Unknown Customer"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
