package extractor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/headermatch"
	"github.com/counterworks/pos-import/internal/domain/variant"
)

// CatalogOptions tune how catalog rows become sellables and variants.
type CatalogOptions struct {
	AutoCreateVariants      bool
	InferPricesFromData     bool
	UseMedianPriceAsBase    bool // false falls back to the first observed price
	LinkToExistingSellables bool
}

// DefaultCatalogOptions returns the standard import behavior.
func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{
		AutoCreateVariants:      true,
		InferPricesFromData:     true,
		UseMedianPriceAsBase:    true,
		LinkToExistingSellables: true,
	}
}

// CatalogExtractor turns product rows into base sellables plus inferred size
// variants. "Latte Sm" / "Latte Rg" / "Latte Lg" become one configurable
// Latte with three variants.
type CatalogExtractor struct {
	inferencer *variant.Inferencer
	opts       CatalogOptions
	logger     *slog.Logger
}

// NewCatalogExtractor creates a catalog extractor with default options.
func NewCatalogExtractor(logger *slog.Logger) *CatalogExtractor {
	return &CatalogExtractor{
		inferencer: variant.NewInferencer(),
		opts:       DefaultCatalogOptions(),
		logger:     logger.With(slog.String("extractor", "catalog")),
	}
}

// WithOptions overrides the extraction options.
func (e *CatalogExtractor) WithOptions(opts CatalogOptions) *CatalogExtractor {
	e.opts = opts
	return e
}

func (e *CatalogExtractor) Name() string  { return "catalog" }
func (e *CatalogExtractor) Priority() int { return 20 }

var catalogProfile = Profile{
	RequiredGroups: [][]string{
		{"product", "product_name", "item", "item_name", "menu_item", "sellable"},
		{"product_detail", "item_detail", "description", "product_description"},
	},
	Indicators: []string{
		"sku", "product_sku", "item_sku", "upc", "barcode",
		"price", "unit_price", "sell_price", "retail_price",
		"category", "product_category", "menu_category", "type",
		"cost", "unit_cost", "cogs",
	},
}

var catalogNameCandidates = []string{
	"product_name", "product_detail", "item_name", "name",
	"product", "sellable", "item", "menu_item",
}

// Detect scores header shape plus how strongly the sampled product labels
// exhibit size patterns.
func (e *CatalogExtractor) Detect(_ context.Context, headers []string, sample [][]string) (float64, error) {
	return ScoreHeaders(headers, catalogProfile, e.scoreFromData(headers, sample)), nil
}

func (e *CatalogExtractor) scoreFromData(headers []string, sample [][]string) float64 {
	nameCol, ok := FindColumn(headers, catalogNameCandidates...)
	if !ok {
		return 0.0
	}

	var labels []string
	for _, row := range sample {
		if name := cell(row, nameCol); name != "" {
			labels = append(labels, name)
		}
	}
	if len(labels) == 0 {
		return 0.0
	}

	analysis := e.inferencer.AnalyzeDataset(labels)

	score := 0.0
	if analysis.SizedProducts > 0 {
		ratio := float64(analysis.SizedProducts) / float64(analysis.TotalProducts)
		score += minF(0.3, ratio*0.4)
	}

	multiVariantBases := 0
	for _, g := range analysis.Groups {
		if g.IsSized && len(g.Variants) > 1 {
			multiVariantBases++
		}
	}
	if multiVariantBases > 0 {
		score += minF(0.2, float64(multiVariantBases)*0.05)
	}

	return score
}

// rawProduct accumulates everything observed for one distinct raw label.
type rawProduct struct {
	name        string
	sku         string
	category    string
	description string
	prices      []decimal.Decimal
	rowCount    int
	firstRow    int
}

// Extract groups rows by raw label, runs variant inference over the distinct
// labels, and emits sellable records followed by their variant records.
func (e *CatalogExtractor) Extract(_ context.Context, ds *dataset.Dataset, mapping Mapping) (*Result, error) {
	nameCol := e.column(ds.Headers, mapping, headermatch.FieldName, catalogNameCandidates...)
	skuCol := e.column(ds.Headers, mapping, headermatch.FieldSKU, "sku", "product_sku", "item_sku", "product_code", "item_code")
	priceCol := e.column(ds.Headers, mapping, headermatch.FieldPrice, "price", "unit_price", "sell_price", "retail_price", "amount")
	categoryCol := e.column(ds.Headers, mapping, headermatch.FieldCategory, "category", "product_category", "menu_category", "type", "product_type")
	descriptionCol := e.column(ds.Headers, mapping, headermatch.FieldDescription, "description", "product_description", "item_description", "notes")

	if nameCol < 0 {
		return nil, fmt.Errorf("catalog extraction requires a product name column")
	}

	// First pass: fold rows into distinct raw labels.
	raws := make(map[string]*rawProduct)
	var rawOrder []string
	for i, row := range ds.Rows {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}

		key := normalizeKey(name)
		rp, ok := raws[key]
		if !ok {
			rp = &rawProduct{name: name, firstRow: i + 1}
			raws[key] = rp
			rawOrder = append(rawOrder, key)
		}

		if price, ok := numericCell(row, priceCol); ok {
			rp.prices = append(rp.prices, price)
		}
		rp.rowCount++
		if rp.sku == "" {
			rp.sku = cell(row, skuCol)
		}
		if rp.category == "" {
			rp.category = cell(row, categoryCol)
		}
		if rp.description == "" {
			rp.description = cell(row, descriptionCol)
		}
	}

	labels := make([]string, 0, len(rawOrder))
	for _, key := range rawOrder {
		labels = append(labels, raws[key].name)
	}
	analysis := e.inferencer.AnalyzeDataset(labels)

	// Second pass: one sellable per base group, variants for sized groups.
	var records []Record
	var issues []Issue
	sellableCount := 0
	variantCount := 0
	configurable := 0

	for _, g := range analysis.Groups {
		isSized := g.IsSized && len(g.Variants) > 1

		var allPrices []decimal.Decimal
		var categories []string
		var skus []string
		var description string
		totalRows := 0
		for _, v := range g.Variants {
			rp, ok := raws[normalizeKey(v.Name)]
			if !ok {
				continue
			}
			allPrices = append(allPrices, rp.prices...)
			if rp.category != "" {
				categories = append(categories, rp.category)
			}
			if rp.sku != "" {
				skus = append(skus, rp.sku)
			}
			if description == "" {
				description = rp.description
			}
			totalRows += rp.rowCount
		}

		basePrice := decimal.Zero
		hasPrice := false
		if e.opts.InferPricesFromData && len(allPrices) > 0 {
			hasPrice = true
			if e.opts.UseMedianPriceAsBase {
				basePrice = median(allPrices)
			} else {
				basePrice = allPrices[0]
			}
		}

		baseKey := "sellable:" + variant.NormalizeKey(g.BaseName)
		productType := batch.ProductSimple
		if isSized {
			configurable++
			productType = batch.ProductConfigurable
		}

		sku := ""
		if !isSized && len(skus) > 0 {
			sku = skus[0]
		}

		records = append(records, Record{
			Key:  baseKey,
			Type: EntitySellable,
			Sellable: &SellableRecord{
				Name:        g.BaseName,
				Slug:        slugify(g.BaseName),
				SKU:         sku,
				Category:    mostCommon(categories),
				Description: description,
				ProductType: productType,
				BasePrice:   basePrice,
				HasPrice:    hasPrice,
			},
			Meta: map[string]string{
				"source":    "inferred",
				"row_count": strconv.Itoa(totalRows),
			},
		})
		sellableCount++

		if !isSized || !e.opts.AutoCreateVariants {
			continue
		}

		for _, v := range g.Variants {
			if v.Size == nil {
				continue
			}
			rp := raws[normalizeKey(v.Name)]

			var adjustment *decimal.Decimal
			if rp != nil && len(rp.prices) > 0 && hasPrice {
				d := median(rp.prices).Sub(basePrice).Round(2)
				adjustment = &d
			}

			variantSKU := ""
			rowCount := 0
			if rp != nil {
				variantSKU = rp.sku
				rowCount = rp.rowCount
			}

			records = append(records, Record{
				Key:  "variant:" + variant.NormalizeKey(g.BaseName) + ":" + strings.ToLower(v.Size.Code),
				Type: EntityVariant,
				Variant: &VariantRecord{
					BaseKey:           baseKey,
					BaseName:          g.BaseName,
					Name:              v.Size.Name,
					SizeCode:          v.Size.Code,
					SizeName:          v.Size.Name,
					SortOrder:         v.Size.Order,
					PriceAdjustment:   adjustment,
					PortionMultiplier: variant.PortionMultiplier(v.Size.Name),
					SKU:               variantSKU,
				},
				Meta: map[string]string{
					"source":        "inferred",
					"original_name": v.Name,
					"row_count":     strconv.Itoa(rowCount),
				},
			})
			variantCount++
		}
	}

	if sellableCount == len(raws) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     "no_variants",
			Message:  "no size variants detected - all products will be created as simple sellables",
		})
	}
	issues = append(issues, detectSKUConflicts(records)...)

	result := NewResult(records)
	result.Issues = issues
	result.Metadata["total_rows"] = strconv.Itoa(len(ds.Rows))
	result.Metadata["unique_products"] = strconv.Itoa(len(raws))
	result.Metadata["sellables"] = strconv.Itoa(sellableCount)
	result.Metadata["variants"] = strconv.Itoa(variantCount)
	result.Metadata["configurable_sellables"] = strconv.Itoa(configurable)
	result.Metadata["sized_products"] = strconv.Itoa(analysis.SizedProducts)
	result.Metadata["unsized_products"] = strconv.Itoa(analysis.UnsizedProducts)
	return result, nil
}

// column prefers an explicit mapping entry and falls back to header search.
func (e *CatalogExtractor) column(headers []string, mapping Mapping, field string, candidates ...string) int {
	if idx, ok := mapping[field]; ok {
		return idx
	}
	if idx, ok := FindColumn(headers, candidates...); ok {
		return idx
	}
	return -1
}

// CreateEntities reconciles sellables first, then their variants. Lookup
// order is SKU, then exact name, then create; an existing simple sellable
// that gained variants is upgraded to configurable.
func (e *CatalogExtractor) CreateEntities(ctx context.Context, records []Record, b *batch.ImportBatch, store repository.Store) (Counts, error) {
	var counts Counts
	var hardErrs []error
	created := make(map[string]*batch.Sellable)

	var nameIndex *NameIndex
	if e.opts.LinkToExistingSellables {
		if names, err := store.ListSellableNames(ctx); err == nil && len(names) > 0 {
			if idx, err := NewNameIndex(names); err == nil {
				nameIndex = idx
				defer nameIndex.Close()
			}
		}
	}

	for _, rec := range records {
		if rec.Type != EntitySellable {
			continue
		}
		sellable, outcome, err := e.findOrCreateSellable(ctx, rec, b, store, nameIndex)
		if err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("sellable %q: %w", rec.Sellable.Name, err))
			continue
		}
		created[rec.Key] = sellable
		counts.Add(outcome)
	}

	for _, rec := range records {
		if rec.Type != EntityVariant {
			continue
		}
		parent, ok := created[rec.Variant.BaseKey]
		if !ok {
			// The parent may have been reconciled in an earlier call when
			// records are committed in chunks.
			p, err := store.FindSellableByName(ctx, rec.Variant.BaseName)
			if err != nil {
				hardErrs = append(hardErrs, fmt.Errorf("cannot create variant %q: parent sellable not found", rec.Variant.Name))
				continue
			}
			parent = p
		}

		existing, err := store.FindVariant(ctx, parent.ID, rec.Variant.SizeCode)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			hardErrs = append(hardErrs, fmt.Errorf("lookup variant %q: %w", rec.Variant.Name, err))
			continue
		}
		if existing != nil {
			counts.Found++
			continue
		}

		v := &batch.SellableVariant{
			SellableID:        parent.ID,
			Name:              rec.Variant.Name,
			SizeCode:          rec.Variant.SizeCode,
			SizeName:          rec.Variant.SizeName,
			SortOrder:         rec.Variant.SortOrder,
			PriceAdjustment:   rec.Variant.PriceAdjustment,
			PortionMultiplier: rec.Variant.PortionMultiplier,
			SKU:               rec.Variant.SKU,
			ImportBatchID:     &b.ID,
		}
		if err := store.CreateVariant(ctx, v); err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("create variant %q: %w", rec.Variant.Name, err))
			continue
		}
		counts.Created++
	}

	return counts, errors.Join(hardErrs...)
}

func (e *CatalogExtractor) findOrCreateSellable(ctx context.Context, rec Record, b *batch.ImportBatch, store repository.Store, nameIndex *NameIndex) (*batch.Sellable, Counts, error) {
	data := rec.Sellable
	if strings.TrimSpace(data.Name) == "" {
		return nil, Counts{}, fmt.Errorf("sellable must have a name")
	}

	var existing *batch.Sellable
	if data.SKU != "" {
		s, err := store.FindSellableBySKU(ctx, data.SKU)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, Counts{}, err
		}
		existing = s
	}
	if existing == nil {
		s, err := store.FindSellableByName(ctx, data.Name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, Counts{}, err
		}
		existing = s
	}

	if existing != nil {
		if existing.ProductType == batch.ProductSimple && data.ProductType == batch.ProductConfigurable {
			existing.ProductType = batch.ProductConfigurable
			if err := store.UpdateSellable(ctx, existing); err != nil {
				return nil, Counts{}, err
			}
			return existing, Counts{Updated: 1}, nil
		}
		return existing, Counts{Found: 1}, nil
	}

	if nameIndex != nil {
		if similar, err := nameIndex.Similar(data.Name, 3); err == nil && len(similar) > 0 {
			e.logger.Warn("creating sellable with similar existing names",
				slog.String("name", data.Name),
				slog.String("similar", strings.Join(similar, ", ")),
			)
		}
	}

	s := &batch.Sellable{
		Name:          data.Name,
		Slug:          data.Slug,
		SKU:           data.SKU,
		Category:      data.Category,
		Description:   data.Description,
		ProductType:   data.ProductType,
		BasePrice:     data.BasePrice,
		ImportBatchID: &b.ID,
	}
	if err := store.CreateSellable(ctx, s); err != nil {
		return nil, Counts{}, err
	}
	return s, Counts{Created: 1}, nil
}

// detectSKUConflicts flags every record whose SKU was already claimed by an
// earlier record.
func detectSKUConflicts(records []Record) []Issue {
	var issues []Issue
	seen := make(map[string]string) // sku -> first record key

	for _, rec := range records {
		sku := ""
		switch rec.Type {
		case EntitySellable:
			sku = rec.Sellable.SKU
		case EntityVariant:
			sku = rec.Variant.SKU
		}
		if sku == "" {
			continue
		}
		if first, ok := seen[sku]; ok {
			issues = append(issues, Issue{
				Severity:  SeverityConflict,
				Code:      "sku_conflict",
				Message:   fmt.Sprintf("duplicate SKU %q already used by %s", sku, first),
				RecordKey: rec.Key,
			})
		} else {
			seen[sku] = rec.Key
		}
	}
	return issues
}

// median returns the midpoint of the values (mean of the middle pair for
// even counts). The input slice is not modified.
func median(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
	}
	return sorted[mid]
}

// mostCommon returns the most frequent non-empty value, earliest first on
// ties.
func mostCommon(values []string) string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
