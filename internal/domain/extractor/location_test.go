package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
)

func TestLocationExtractor_Detect(t *testing.T) {
	e := NewLocationExtractor(discardLogger())
	ctx := context.Background()

	t.Run("store export scores above threshold", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"store_location", "store_id", "address", "region"}, nil)
		require.NoError(t, err)
		assert.Greater(t, score, 0.3)
	})

	t.Run("unrelated headers score zero", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"item_name", "price", "sku"}, nil)
		require.NoError(t, err)
		assert.Zero(t, score)
	})
}

func TestLocationExtractor_Extract(t *testing.T) {
	e := NewLocationExtractor(discardLogger())
	ctx := context.Background()

	t.Run("dedupes by external id and sorts by row count", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"store_location", "store_id", "region"},
			[][]string{
				{"Lower Manhattan", "LM001", "NYC"},
				{"Upper West Side", "UWS002", "NYC"},
				{"Lower Manhattan", "LM001", "NYC"},
				{"Lower Manhattan", "LM001", "NYC"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)

		first := result.Records[0]
		assert.Equal(t, "ext:lm001", first.Key)
		assert.Equal(t, "Lower Manhattan", first.Location.Name)
		assert.Equal(t, "LM001", first.Location.ExternalID)
		assert.Equal(t, 3, first.Location.RowCount)
		assert.Equal(t, "NYC", first.Meta["region"])

		assert.Equal(t, "ext:uws002", result.Records[1].Key)
		assert.Empty(t, result.Issues)
	})

	t.Run("dedupes by name when no external id", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"location"},
			[][]string{
				{"Main Kitchen"},
				{"main kitchen"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "name:main kitchen", result.Records[0].Key)
		assert.Equal(t, 2, result.Records[0].Location.RowCount)
	})

	t.Run("same external id with different names is a conflict", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"store_location", "store_id"},
			[][]string{
				{"Lower Manhattan", "LM001"},
				{"Lower Manhatten", "LM001"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		conflicts := result.Conflicts()
		require.Len(t, conflicts, 1)
		assert.Equal(t, "location_name_conflict", conflicts[0].Code)
		assert.Equal(t, 2, conflicts[0].Row)
	})

	t.Run("infers location type from name", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"location"},
			[][]string{
				{"Downtown Store"},
				{"Central Kitchen"},
				{"Walk-In Cooler"},
				{"Farmers Market Booth"},
				{"Annex"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)

		types := make(map[string]string)
		for _, rec := range result.Records {
			types[rec.Location.Name] = rec.Location.Type
		}
		assert.Equal(t, batch.LocationStore, types["Downtown Store"])
		assert.Equal(t, batch.LocationKitchen, types["Central Kitchen"])
		assert.Equal(t, batch.LocationStorage, types["Walk-In Cooler"])
		assert.Equal(t, batch.LocationEvent, types["Farmers Market Booth"])
		assert.Equal(t, batch.LocationStore, types["Annex"], "unrecognized names default to store")
	})

	t.Run("same name with different external ids is a conflict", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"store_location", "store_id"},
			[][]string{
				{"Lower Manhattan", "LM001"},
				{"Lower Manhattan", "LM999"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)

		conflicts := result.Conflicts()
		require.Len(t, conflicts, 1)
		assert.Equal(t, "location_external_id_conflict", conflicts[0].Code)
	})

	t.Run("explicit type column wins over inference", func(t *testing.T) {
		ds := catalogDataset(t,
			[]string{"location", "location_type"},
			[][]string{{"Downtown Store", "warehouse"}})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "warehouse", result.Records[0].Location.Type)
	})

	t.Run("missing location column is an error", func(t *testing.T) {
		ds := catalogDataset(t, []string{"qty", "total"}, [][]string{{"1", "2.50"}})

		_, err := e.Extract(ctx, ds, nil)
		assert.Error(t, err)
	})
}

func TestLocationExtractor_CreateEntities(t *testing.T) {
	ctx := context.Background()
	e := NewLocationExtractor(discardLogger())

	records := []Record{
		{
			Key:  "ext:lm001",
			Type: EntityLocation,
			Location: &LocationRecord{
				Name: "Lower Manhattan", Type: batch.LocationStore,
				ExternalID: "LM001", RowCount: 3,
			},
		},
		{
			Key:  "name:main kitchen",
			Type: EntityLocation,
			Location: &LocationRecord{
				Name: "Main Kitchen", Type: batch.LocationKitchen, RowCount: 1,
			},
		},
	}

	t.Run("creates then finds on reimport", func(t *testing.T) {
		store := repository.NewMemoryStore()
		b := batch.New("test", "stores.csv")

		counts, err := e.CreateEntities(ctx, records, b, store)
		require.NoError(t, err)
		assert.Equal(t, 2, counts.Created)
		assert.Equal(t, 2, store.CountLocations())

		counts, err = e.CreateEntities(ctx, records, batch.New("again", "stores.csv"), store)
		require.NoError(t, err)
		assert.Zero(t, counts.Created)
		assert.Equal(t, 2, counts.Found)
	})

	t.Run("backfills external id on a location found by name", func(t *testing.T) {
		store := repository.NewMemoryStore()
		require.NoError(t, store.CreateLocation(ctx, &batch.Location{Name: "Lower Manhattan"}))

		b := batch.New("test", "stores.csv")
		counts, err := e.CreateEntities(ctx, records[:1], b, store)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Updated)

		updated, err := store.FindLocationByExternalID(ctx, "LM001")
		require.NoError(t, err)
		assert.Equal(t, "Lower Manhattan", updated.Name)
	})

	t.Run("record without a name is a hard error", func(t *testing.T) {
		store := repository.NewMemoryStore()
		b := batch.New("test", "stores.csv")

		bad := []Record{{Key: "ext:x", Type: EntityLocation, Location: &LocationRecord{ExternalID: "X1"}}}
		_, err := e.CreateEntities(ctx, bad, b, store)
		assert.Error(t, err)
	})
}

func TestInferLocationType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Retail Outlet 5", batch.LocationStore},
		{"Distribution Center", batch.LocationWarehouse},
		{"Prep Line", batch.LocationKitchen},
		{"Pickup Window", batch.LocationStation},
		{"Dry Storage", batch.LocationStorage},
		{"Pop-Up Fair", batch.LocationEvent},
		{"Annex", batch.LocationStore},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferLocationType(tt.name), "name %q", tt.name)
	}
}
