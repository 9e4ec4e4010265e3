package dataset

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// ExportGenerator fabricates realistic POS export rows for tests using
// gofakeit. Seeded generators produce the same export every run.
type ExportGenerator struct {
	faker *gofakeit.Faker
}

// NewExportGenerator creates a generator with a random seed.
func NewExportGenerator() *ExportGenerator {
	return &ExportGenerator{faker: gofakeit.New(0)}
}

// NewExportGeneratorWithSeed creates a reproducible generator.
func NewExportGeneratorWithSeed(seed int64) *ExportGenerator {
	return &ExportGenerator{faker: gofakeit.New(seed)}
}

var menuItems = []string{
	"Latte", "Cappuccino", "Americano", "Drip Coffee", "Cold Brew",
	"Chai Tea", "Hot Chocolate", "Lemonade", "House Salad", "Tomato Soup",
}

var menuSizes = []struct {
	label      string
	adjustment string
}{
	{"Sm", "-0.50"},
	{"Rg", "0.00"},
	{"Lg", "0.50"},
}

var menuCategories = []string{"Coffee", "Tea", "Bakery", "Kitchen", "Retail"}

// MenuExport generates a sized menu export with a header row. Each item
// appears once per size with a consistent price ladder around its base price.
func (g *ExportGenerator) MenuExport(itemCount int) [][]string {
	if itemCount > len(menuItems) {
		itemCount = len(menuItems)
	}

	rows := [][]string{{"item_name", "price", "category"}}
	for i := 0; i < itemCount; i++ {
		base := decimal.NewFromFloat(g.faker.Float64Range(3, 12)).Round(2)
		category := menuCategories[i%len(menuCategories)]
		for _, size := range menuSizes {
			price := base.Add(decimal.RequireFromString(size.adjustment))
			rows = append(rows, []string{
				fmt.Sprintf("%s %s", menuItems[i], size.label),
				price.StringFixed(2),
				category,
			})
		}
	}
	return rows
}

// CustomerExport generates a customer export with a header row. Roughly one
// row in five is a repeat purchase by an earlier customer.
func (g *ExportGenerator) CustomerExport(rowCount int) [][]string {
	rows := [][]string{{"customer_name", "email", "phone", "order_total"}}

	var seen [][]string
	for i := 0; i < rowCount; i++ {
		var row []string
		if len(seen) > 0 && i%5 == 4 {
			prev := seen[g.faker.IntRange(0, len(seen)-1)]
			row = append([]string(nil), prev...)
		} else {
			row = []string{
				g.faker.Name(),
				g.faker.Email(),
				g.faker.Phone(),
				"",
			}
			seen = append(seen, row)
		}
		total := decimal.NewFromFloat(g.faker.Float64Range(5, 80)).Round(2)
		row[3] = total.StringFixed(2)
		rows = append(rows, row)
	}
	return rows
}

// LocationExport generates a store location export with a header row.
func (g *ExportGenerator) LocationExport(count int) [][]string {
	rows := [][]string{{"store_location", "store_id", "address", "city", "zip"}}
	for i := 0; i < count; i++ {
		addr := g.faker.Address()
		rows = append(rows, []string{
			fmt.Sprintf("%s Store", g.faker.City()),
			fmt.Sprintf("ST%03d", i+1),
			addr.Street,
			addr.City,
			addr.Zip,
		})
	}
	return rows
}
