package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferencer_Infer(t *testing.T) {
	inf := NewInferencer()

	t.Run("suffix abbreviation", func(t *testing.T) {
		res := inf.Infer("Latte Sm")
		require.True(t, res.Sized())
		assert.Equal(t, "Latte", res.BaseName)
		assert.Equal(t, "Small", res.Size.Name)
		assert.Equal(t, "Sm", res.Size.Code)
		assert.Equal(t, 0.85, res.Confidence)
	})

	t.Run("full size word", func(t *testing.T) {
		res := inf.Infer("Ethiopia Regular")
		require.True(t, res.Sized())
		assert.Equal(t, "Ethiopia", res.BaseName)
		assert.Equal(t, "Regular", res.Size.Name)
		assert.Equal(t, 3, res.Size.Order)
		assert.Equal(t, 0.95, res.Confidence)
	})

	t.Run("dash delimiter", func(t *testing.T) {
		res := inf.Infer("Cold Brew - Large")
		require.True(t, res.Sized())
		assert.Equal(t, "Cold Brew", res.BaseName)
		assert.Equal(t, "Large", res.Size.Name)
		assert.Equal(t, 0.9, res.Confidence)
	})

	t.Run("comma delimiter", func(t *testing.T) {
		res := inf.Infer("Mocha, XL")
		require.True(t, res.Sized())
		assert.Equal(t, "Mocha", res.BaseName)
		assert.Equal(t, "Extra Large", res.Size.Name)
	})

	t.Run("splits on last delimiter occurrence", func(t *testing.T) {
		res := inf.Infer("Ham - Cheese - Lg")
		require.True(t, res.Sized())
		assert.Equal(t, "Ham - Cheese", res.BaseName)
		assert.Equal(t, "Large", res.Size.Name)
	})

	t.Run("case insensitive size match", func(t *testing.T) {
		res := inf.Infer("Latte sm")
		require.True(t, res.Sized())
		assert.Equal(t, "Small", res.Size.Name)
	})

	t.Run("exclusion phrase never splits", func(t *testing.T) {
		res := inf.Infer("Wholesale Discount")
		assert.False(t, res.Sized())
		assert.Equal(t, "Wholesale Discount", res.BaseName)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("medium roast is not a size", func(t *testing.T) {
		res := inf.Infer("Colombia Medium Roast")
		assert.False(t, res.Sized())
	})

	t.Run("single letter needs two base words", func(t *testing.T) {
		res := inf.Infer("Coffee L")
		assert.False(t, res.Sized())

		res = inf.Infer("Cold Brew L")
		require.True(t, res.Sized())
		assert.Equal(t, "Cold Brew", res.BaseName)
		assert.Equal(t, 0.6, res.Confidence)
	})

	t.Run("no size", func(t *testing.T) {
		res := inf.Infer("Oatmeal Scone")
		assert.False(t, res.Sized())
		assert.Equal(t, "Oatmeal Scone", res.BaseName)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("xxl maps to 2X Large", func(t *testing.T) {
		res := inf.Infer("Hoodie XXL")
		require.True(t, res.Sized())
		assert.Equal(t, "2X Large", res.Size.Name)
		assert.Equal(t, 7, res.Size.Order)
	})

	t.Run("preserves original label", func(t *testing.T) {
		res := inf.Infer("  Latte Sm  ")
		assert.Equal(t, "  Latte Sm  ", res.OriginalName)
		assert.Equal(t, "Latte", res.BaseName)
	})
}

func TestInferencer_GroupByBase(t *testing.T) {
	inf := NewInferencer()

	t.Run("latte variants grouped and ordered by size", func(t *testing.T) {
		groups := inf.GroupByBase([]string{"Latte Lg", "Latte Sm", "Latte Rg", "Oatmeal Scone"})
		require.Len(t, groups, 2)

		latte := groups[0]
		assert.Equal(t, "Latte", latte.BaseName)
		assert.Equal(t, "latte", latte.Key)
		assert.True(t, latte.IsSized)
		require.Len(t, latte.Variants, 3)
		assert.Equal(t, "Small", latte.Variants[0].Size.Name)
		assert.Equal(t, "Regular", latte.Variants[1].Size.Name)
		assert.Equal(t, "Large", latte.Variants[2].Size.Name)

		scone := groups[1]
		assert.False(t, scone.IsSized)
		assert.Equal(t, "oatmeal-scone", scone.Key)
	})

	t.Run("single sized label does not make a sized group", func(t *testing.T) {
		groups := inf.GroupByBase([]string{"Latte Sm"})
		require.Len(t, groups, 1)
		assert.False(t, groups[0].IsSized)
		assert.Equal(t, 1, groups[0].SizedCount())
	})

	t.Run("size order ties keep input order", func(t *testing.T) {
		groups := inf.GroupByBase([]string{"Chai Md", "Chai Rg"})
		require.Len(t, groups, 1)
		require.Len(t, groups[0].Variants, 2)
		assert.Equal(t, "Chai Md", groups[0].Variants[0].Name)
		assert.Equal(t, "Chai Rg", groups[0].Variants[1].Name)
	})

	t.Run("deterministic group order", func(t *testing.T) {
		labels := []string{"Mocha Sm", "Latte Sm", "Mocha Lg"}
		a := inf.GroupByBase(labels)
		b := inf.GroupByBase(labels)
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, a[i].Key, b[i].Key)
		}
		assert.Equal(t, "mocha", a[0].Key)
		assert.Equal(t, "latte", a[1].Key)
	})
}

func TestInferencer_AnalyzeDataset(t *testing.T) {
	inf := NewInferencer()

	analysis := inf.AnalyzeDataset([]string{"Latte Sm", "Latte Lg", "Mocha Rg", "Mocha Regular", "Scone"})

	assert.Equal(t, 5, analysis.TotalProducts)
	assert.Equal(t, 3, analysis.UniqueBases)
	assert.Equal(t, 4, analysis.SizedProducts)
	assert.Equal(t, 1, analysis.UnsizedProducts)
	assert.Equal(t, 1, analysis.SizeDistribution["Sm"])
	assert.Equal(t, 1, analysis.SizeDistribution["Lg"])
	assert.Equal(t, 1, analysis.SizeDistribution["Rg"])
	assert.Equal(t, 1, analysis.SizeDistribution["Regular"], "codes are counted as they appeared, not canonicalized")
}

func TestMatchSize(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		order int
		ok    bool
	}{
		{"Sm", "Small", 2, true},
		{"small", "Small", 2, true},
		{"Extra Small", "Extra Small", 1, true},
		{"X-Large", "Extra Large", 6, true},
		{"XXL", "2X Large", 7, true},
		{"R", "Regular", 3, true},
		{"Grande", "", 0, false},
		{"", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			size, ok := MatchSize(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.name, size.Name)
				assert.Equal(t, tc.order, size.Order)
			}
		})
	}
}

func TestPortionMultiplier(t *testing.T) {
	assert.Equal(t, 0.5, PortionMultiplier("Extra Small"))
	assert.Equal(t, 0.75, PortionMultiplier("Small"))
	assert.Equal(t, 1.0, PortionMultiplier("Regular"))
	assert.Equal(t, 1.25, PortionMultiplier("Large"))
	assert.Equal(t, 2.0, PortionMultiplier("2X Large"))
	assert.Equal(t, 1.0, PortionMultiplier("Grande"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "oatmeal-scone", NormalizeKey("Oatmeal Scone"))
	assert.Equal(t, "latte", NormalizeKey("  Latte!  "))
	assert.Equal(t, "caf-au-lait", NormalizeKey("Café au Lait"))
	assert.Equal(t, "", NormalizeKey("---"))
}
