package extractor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumericCell(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want string
		ok   bool
	}{
		{"plain", "4.50", "4.5", true},
		{"currency symbol", "$4.50", "4.5", true},
		{"thousands separator", "1,234.56", "1234.56", true},
		{"accounting negative", "(12.00)", "-12", true},
		{"trailing currency code", "4.50 USD", "4.5", true},
		{"empty", "", "", false},
		{"text", "market price", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numericCell([]string{tt.cell}, 0)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
					"want %s got %s", tt.want, got)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "iced-tea", slugify("Iced Tea"))
	assert.Equal(t, "cafe-au-lait", slugify("  Cafe  au   Lait "))
	assert.Equal(t, "no-2-combo", slugify("No. 2 Combo!"))
}

func TestHasHeader(t *testing.T) {
	norm := normalizeHeaders([]string{"Name", "Email", "Phone"})

	assert.True(t, hasHeader(norm, "email"), "exact match")
	assert.True(t, hasHeader(norm, "customer_name"), "terse header satisfies a longer candidate")
	assert.True(t, hasAnyHeader(norm, []string{"loyalty", "customer_phone"}))
	assert.False(t, hasHeader(norm, "sku"))

	norm = normalizeHeaders([]string{"Customer Name"})
	assert.True(t, hasHeader(norm, "name"), "longer header satisfies a terse candidate")
}

func TestFindColumn(t *testing.T) {
	headers := []string{"Item Name", "Unit Price", "SKU"}

	idx, ok := FindColumn(headers, "price")
	assert.True(t, ok)
	assert.Equal(t, 1, idx, "containment match on Unit Price")

	idx, ok = FindColumn(headers, "sku")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = FindColumn(headers, "quantity")
	assert.False(t, ok)
}
