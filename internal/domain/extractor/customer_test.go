package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/batch/repository"
)

func TestCustomerExtractor_Detect(t *testing.T) {
	e := NewCustomerExtractor(discardLogger())
	ctx := context.Background()

	t.Run("customer column uses standard scoring", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"customer_name", "email", "total"}, nil)
		require.NoError(t, err)
		assert.Greater(t, score, 0.0)
	})

	t.Run("terse customer list scores above threshold", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"name", "email", "phone"}, nil)
		require.NoError(t, err)
		assert.Greater(t, score, 0.4, "a bare name column still identifies a customer list")
	})

	t.Run("transaction file without customer column scores exactly 0.4", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"order_id", "date", "total"}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 0.4, score, 1e-9)
	})

	t.Run("transaction headers without a date column score zero", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"order_id", "total"}, nil)
		require.NoError(t, err)
		assert.Zero(t, score)
	})

	t.Run("unrelated headers score zero", func(t *testing.T) {
		score, err := e.Detect(ctx, []string{"ingredient", "unit", "quantity"}, nil)
		require.NoError(t, err)
		assert.Zero(t, score)
	})
}

func TestCustomerExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("dedupes by email then name", func(t *testing.T) {
		e := NewCustomerExtractor(discardLogger())
		ds := catalogDataset(t,
			[]string{"customer_name", "customer_email", "total"},
			[][]string{
				{"Jane Smith", "jane@example.com", "12.00"},
				{"Jane S.", "jane@example.com", "8.00"},
				{"Bob Jones", "", "5.00"},
				{"Bob Jones", "", "7.00"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)

		jane := result.Records[0]
		assert.Equal(t, "email:jane@example.com", jane.Key)
		assert.Equal(t, "Jane Smith", jane.Customer.Name)
		assert.Equal(t, 2, jane.Customer.RowCount)
		assert.Equal(t, batch.CustomerModeNamed, jane.Customer.Mode)

		bob := result.Records[1]
		assert.Equal(t, "name:bob jones", bob.Key)
		assert.Equal(t, 2, bob.Customer.RowCount)
	})

	t.Run("generic names fold into the walk-in fallback", func(t *testing.T) {
		e := NewCustomerExtractor(discardLogger())
		ds := catalogDataset(t,
			[]string{"customer_name", "total"},
			[][]string{
				{"Guest", "4.00"},
				{"CASH", "3.00"},
				{"Walk-In", "6.00"},
				{"Jane Smith", "12.00"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)

		fallback := result.Records[1]
		assert.Equal(t, FallbackRecordKey, fallback.Key)
		assert.Equal(t, "Walk In", fallback.Customer.Name)
		assert.Equal(t, batch.CustomerModeWalkIn, fallback.Customer.Mode)
		assert.True(t, fallback.Customer.Fallback)
		assert.Equal(t, 3, fallback.Customer.RowCount)
		assert.Equal(t, "3", result.Metadata["anonymous_count"])
	})

	t.Run("platform mode names the fallback after the detected platform", func(t *testing.T) {
		e := NewCustomerExtractorWithOptions(discardLogger(), CustomerOptions{
			FallbackMode: batch.CustomerModePlatform,
		})
		ds := catalogDataset(t,
			[]string{"order_id", "date", "customer_name", "channel"},
			[][]string{
				{"1001", "2026-01-05", "", "Shopify"},
				{"1002", "2026-01-05", "", "Shopify"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		fallback := result.Records[0]
		assert.Equal(t, "Shopify Customer", fallback.Customer.Name)
		assert.Equal(t, "shopify", fallback.Customer.Platform)
		assert.Equal(t, "shopify", result.Metadata["detected_platform"])
	})

	t.Run("none mode leaves anonymous rows unassigned with a warning", func(t *testing.T) {
		e := NewCustomerExtractorWithOptions(discardLogger(), CustomerOptions{
			FallbackMode: batch.CustomerModeNone,
		})
		ds := catalogDataset(t,
			[]string{"customer_name", "total"},
			[][]string{
				{"Guest", "4.00"},
				{"Jane Smith", "12.00"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		warnings := result.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "anonymous_rows_unassigned", warnings[0].Code)
	})

	t.Run("named mode uses the configured name", func(t *testing.T) {
		e := NewCustomerExtractorWithOptions(discardLogger(), CustomerOptions{
			FallbackMode: batch.CustomerModeNamed,
			FallbackName: "Farmers Market",
		})
		ds := catalogDataset(t,
			[]string{"customer_name", "total"},
			[][]string{{"Guest", "4.00"}})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "Farmers Market", result.Records[0].Customer.Name)
	})

	t.Run("phone alone identifies a customer", func(t *testing.T) {
		e := NewCustomerExtractor(discardLogger())
		ds := catalogDataset(t,
			[]string{"customer_name", "customer_phone", "total"},
			[][]string{
				{"", "555-123-4567", "4.00"},
				{"", "555", "3.00"},
			})

		result, err := e.Extract(ctx, ds, nil)
		require.NoError(t, err)

		require.Len(t, result.Records, 2)
		assert.Equal(t, "555-123-4567", result.Records[0].Customer.Phone)
		assert.Equal(t, FallbackRecordKey, result.Records[1].Key)
		assert.Equal(t, 1, result.Records[1].Customer.RowCount)
	})
}

func TestCustomerExtractor_CreateEntities(t *testing.T) {
	ctx := context.Background()
	e := NewCustomerExtractor(discardLogger())

	records := []Record{
		{
			Key:  "email:jane@example.com",
			Type: EntityCustomer,
			Customer: &CustomerRecord{
				Name: "Jane Smith", Email: "jane@example.com",
				Mode: batch.CustomerModeNamed, RowCount: 2,
			},
		},
		{
			Key:  FallbackRecordKey,
			Type: EntityCustomer,
			Customer: &CustomerRecord{
				Name: "Walk In", Mode: batch.CustomerModeWalkIn,
				Fallback: true, RowCount: 3,
			},
		},
	}

	t.Run("creates then finds on reimport", func(t *testing.T) {
		store := repository.NewMemoryStore()
		b := batch.New("test", "test.csv")

		counts, err := e.CreateEntities(ctx, records, b, store)
		require.NoError(t, err)
		assert.Equal(t, 2, counts.Created)
		assert.Equal(t, 2, store.CountCustomers())

		counts, err = e.CreateEntities(ctx, records, batch.New("again", "test.csv"), store)
		require.NoError(t, err)
		assert.Zero(t, counts.Created)
		assert.Equal(t, 2, counts.Found)
		assert.Equal(t, 2, store.CountCustomers())
	})

	t.Run("email-only record gets a derived name", func(t *testing.T) {
		store := repository.NewMemoryStore()
		b := batch.New("test", "test.csv")

		emailOnly := []Record{{
			Key:  "email:john.doe@example.com",
			Type: EntityCustomer,
			Customer: &CustomerRecord{
				Email: "john.doe@example.com", Mode: batch.CustomerModeNamed,
			},
		}}
		counts, err := e.CreateEntities(ctx, emailOnly, b, store)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Created)

		created, err := store.FindCustomerByName(ctx, "John Doe")
		require.NoError(t, err)
		assert.Equal(t, "john.doe@example.com", created.Email)
	})

	t.Run("record without name or email is a hard error", func(t *testing.T) {
		store := repository.NewMemoryStore()
		b := batch.New("test", "test.csv")

		bad := []Record{{
			Key:      "name:",
			Type:     EntityCustomer,
			Customer: &CustomerRecord{Phone: "555-123-4567"},
		}}
		_, err := e.CreateEntities(ctx, bad, b, store)
		assert.Error(t, err)
	})
}

func TestIsGenericCustomerName(t *testing.T) {
	generic := []string{"Guest", "walk in", "Walk-In", "CASH", "n/a", "-", "Unknown"}
	for _, name := range generic {
		assert.True(t, isGenericCustomerName(name), "%q should be generic", name)
	}

	real := []string{"Jane Smith", "Acme Co", "Cash Johnson LLC"}
	for _, name := range real {
		assert.False(t, isGenericCustomerName(name), "%q should not be generic", name)
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john.doe@example.com", "John Doe"},
		{"mary_jane-watson@example.com", "Mary Jane Watson"},
		{"bob@example.com", "Bob"},
		{"", "Unknown Customer"},
		{"@example.com", "Unknown Customer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveNameFromEmail(tt.email), "email %q", tt.email)
	}
}
