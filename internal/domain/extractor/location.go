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

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
	"github.com/counterworks/pos-import/internal/domain/dataset"
)

// locationTypePatterns classifies a location by name substring. Checked in
// order; first hit wins.
var locationTypePatterns = []struct {
	locType  string
	patterns []string
}{
	{batch.LocationStore, []string{"store", "shop", "retail", "outlet", "branch"}},
	{batch.LocationWarehouse, []string{"warehouse", "wh", "distribution", "dc", "fulfillment"}},
	{batch.LocationKitchen, []string{"kitchen", "prep", "production", "commissary", "central"}},
	{batch.LocationStation, []string{"station", "line", "counter", "window"}},
	{batch.LocationStorage, []string{"storage", "cooler", "freezer", "pantry", "dry storage"}},
	{batch.LocationEvent, []string{"market", "fair", "popup", "pop-up", "event", "booth"}},
}

var locationProfile = Profile{
	RequiredGroups: [][]string{
		{"location", "store_location", "store", "warehouse", "site"},
		{"location_name", "store_name", "warehouse_name", "site_name"},
	},
	Indicators: []string{
		"location_id", "store_id", "warehouse_id", "site_id",
		"location_code", "store_code", "store_number",
		"address", "region", "district", "zone",
	},
}

var (
	locationNameCandidates = []string{
		"location", "store_location", "location_name", "store_name",
		"store", "warehouse", "site", "site_name",
	}
	locationIDCandidates = []string{
		"location_id", "store_id", "warehouse_id", "site_id",
		"location_code", "store_code", "store_number", "external_id",
	}
	locationAddressCandidates = []string{"address", "street_address", "location_address"}
	locationCityCandidates    = []string{"city", "town"}
	locationZipCandidates     = []string{"zip", "zip_code", "postal_code", "postcode"}
	locationRegionCandidates  = []string{"region", "district", "zone", "area", "territory"}
	locationTypeCandidates    = []string{"location_type", "store_type", "type"}
)

// LocationExtractor recognizes store, warehouse and station lists. Location
// data is simple compared to the other entity types, so the work here is
// accurate deduplication and external ID preservation across systems.
type LocationExtractor struct {
	logger *slog.Logger
}

// NewLocationExtractor builds a location extractor.
func NewLocationExtractor(logger *slog.Logger) *LocationExtractor {
	return &LocationExtractor{logger: logger}
}

func (e *LocationExtractor) Name() string { return "location" }

// Priority runs locations before everything else: they are dependencies of
// catalog and transaction data.
func (e *LocationExtractor) Priority() int { return 10 }

func (e *LocationExtractor) Detect(_ context.Context, headers []string, _ [][]string) (float64, error) {
	return ScoreHeaders(headers, locationProfile, 0), nil
}

type rawLocation struct {
	name       string
	externalID string
	address    string
	city       string
	zip        string
	region     string
	locType    string
	rowCount   int
	firstRow   int
}

// Extract deduplicates locations by external ID when present, by normalized
// name otherwise. Rows without a location value are skipped silently; a key
// seen again with a different name raises a conflict.
func (e *LocationExtractor) Extract(_ context.Context, ds *dataset.Dataset, mapping Mapping) (*Result, error) {
	column := func(field string, candidates []string) int {
		if idx, ok := mapping[field]; ok {
			return idx
		}
		if idx, ok := FindColumn(ds.Headers, candidates...); ok {
			return idx
		}
		return -1
	}

	nameCol := column("location", locationNameCandidates)
	idCol := column("external_id", locationIDCandidates)
	addressCol := column("address", locationAddressCandidates)
	cityCol := column("city", locationCityCandidates)
	zipCol := column("zip", locationZipCandidates)
	regionCol := column("region", locationRegionCandidates)
	typeCol := column("type", locationTypeCandidates)

	if nameCol < 0 {
		return nil, errors.New("no location column found in headers")
	}

	byKey := make(map[string]*rawLocation)
	var order []string
	var issues []Issue
	extIDByName := make(map[string]string)

	for i, row := range ds.Rows {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}

		externalID := cell(row, idCol)
		key := "name:" + normalizeKey(name)
		if externalID != "" {
			key = "ext:" + normalizeKey(externalID)

			normName := normalizeKey(name)
			if prev, seen := extIDByName[normName]; seen && prev != externalID {
				issues = append(issues, Issue{
					Severity:  SeverityConflict,
					Code:      "location_external_id_conflict",
					Message:   fmt.Sprintf("location %q appears with external ids %q and %q", name, prev, externalID),
					RecordKey: key,
					Row:       i + 1,
				})
			} else if !seen {
				extIDByName[normName] = externalID
			}
		}

		raw, ok := byKey[key]
		if !ok {
			locType := cell(row, typeCol)
			if locType == "" {
				locType = inferLocationType(name)
			}
			raw = &rawLocation{
				name:       name,
				externalID: externalID,
				address:    cell(row, addressCol),
				city:       cell(row, cityCol),
				zip:        cell(row, zipCol),
				region:     cell(row, regionCol),
				locType:    locType,
				firstRow:   i + 1,
			}
			byKey[key] = raw
			order = append(order, key)
		}
		raw.rowCount++

		if raw.name != name {
			issues = append(issues, Issue{
				Severity:  SeverityConflict,
				Code:      "location_name_conflict",
				Message:   fmt.Sprintf("location key %q has conflicting names %q and %q", key, raw.name, name),
				RecordKey: key,
				Row:       i + 1,
			})
		}
	}

	// Most referenced locations first, ties by name.
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := byKey[order[a]], byKey[order[b]]
		if la.rowCount != lb.rowCount {
			return la.rowCount > lb.rowCount
		}
		return la.name < lb.name
	})

	records := make([]Record, 0, len(order))
	for _, key := range order {
		raw := byKey[key]
		meta := map[string]string{
			"source_row": strconv.Itoa(raw.firstRow),
		}
		if raw.region != "" {
			meta["region"] = raw.region
		}
		records = append(records, Record{
			Key:  key,
			Type: EntityLocation,
			Location: &LocationRecord{
				Name:       raw.name,
				Type:       raw.locType,
				ExternalID: raw.externalID,
				Address:    raw.address,
				City:       raw.city,
				Zip:        raw.zip,
				RowCount:   raw.rowCount,
			},
			Meta: meta,
		})
	}

	result := NewResult(records)
	result.Issues = issues
	result.Metadata["location_count"] = strconv.Itoa(len(records))
	result.Metadata["has_external_ids"] = strconv.FormatBool(idCol >= 0)

	e.logger.Debug("location extraction complete",
		slog.Int("locations", len(records)),
		slog.Int("rows", ds.RowCount()))

	return result, nil
}

// CreateEntities reconciles locations: find by external ID, then by name,
// create otherwise. A location found by name that lacks an external ID we now
// have gets backfilled and counts as updated.
func (e *LocationExtractor) CreateEntities(ctx context.Context, records []Record, b *batch.ImportBatch, store repository.Store) (Counts, error) {
	var counts Counts
	var hardErrs []error

	for _, rec := range records {
		if rec.Type != EntityLocation || rec.Location == nil {
			continue
		}
		lr := rec.Location

		if lr.Name == "" {
			hardErrs = append(hardErrs, fmt.Errorf("location record %q has no name", rec.Key))
			continue
		}

		existing, err := e.findLocation(ctx, store, lr)
		if err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("failed to look up location %q: %w", lr.Name, err))
			continue
		}
		if existing != nil {
			if lr.ExternalID != "" && existing.ExternalID == "" {
				existing.ExternalID = lr.ExternalID
				if err := store.UpdateLocation(ctx, existing); err != nil {
					hardErrs = append(hardErrs, fmt.Errorf("failed to update location %q: %w", lr.Name, err))
					continue
				}
				counts.Updated++
			} else {
				counts.Found++
			}
			continue
		}

		location := &batch.Location{
			Name:          lr.Name,
			Type:          lr.Type,
			ExternalID:    lr.ExternalID,
			Address:       lr.Address,
			City:          lr.City,
			Zip:           lr.Zip,
			RowCount:      lr.RowCount,
			ImportBatchID: &b.ID,
		}
		if err := store.CreateLocation(ctx, location); err != nil {
			hardErrs = append(hardErrs, fmt.Errorf("failed to create location %q: %w", lr.Name, err))
			continue
		}
		counts.Created++
	}

	if len(hardErrs) > 0 {
		return counts, errors.Join(hardErrs...)
	}
	return counts, nil
}

func (e *LocationExtractor) findLocation(ctx context.Context, store repository.Store, lr *LocationRecord) (*batch.Location, error) {
	if lr.ExternalID != "" {
		existing, err := store.FindLocationByExternalID(ctx, lr.ExternalID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	existing, err := store.FindLocationByName(ctx, lr.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return existing, nil
}

// inferLocationType classifies a location by name keywords. First hit wins;
// anything unrecognized is treated as a store.
func inferLocationType(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range locationTypePatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				return entry.locType
			}
		}
	}
	return batch.LocationStore
}
