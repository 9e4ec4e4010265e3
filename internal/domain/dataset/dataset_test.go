package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectConfig(t *testing.T) {
	t.Run("comma delimited with clean headers", func(t *testing.T) {
		data := []byte("Item Name,Price,SKU,Category\nLatte,4.50,SKU-1,Drinks\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, ',', cfg.Delimiter)
		assert.Equal(t, 0, cfg.SkipLines)
		assert.Equal(t, []string{"Item Name", "Price", "SKU", "Category"}, cfg.Headers)
		assert.NotEmpty(t, cfg.Fingerprint)
	})

	t.Run("semicolon delimited", func(t *testing.T) {
		data := []byte("Item;Price;Qty\nEspresso;2.50;3\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, ';', cfg.Delimiter)
	})

	t.Run("metadata lines before header", func(t *testing.T) {
		data := []byte("Export generated 2026-01-15\n\nItem Name,Price,Category\nLatte,4.50,Drinks\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.SkipLines)
		assert.Equal(t, []string{"Item Name", "Price", "Category"}, cfg.Headers)
	})

	t.Run("BOM stripped from first header", func(t *testing.T) {
		data := []byte("\uFEFFItem Name,Price\nLatte,4.50\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, "Item Name", cfg.Headers[0])
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := DetectConfig(nil)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("header search stops after 20 lines", func(t *testing.T) {
		csv := "Item Name,Price,Category\nLatte,4.50,Drinks\n"

		data := []byte(strings.Repeat("report preamble\n", 19) + csv)
		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, 19, cfg.SkipLines)

		_, err = DetectConfig([]byte(strings.Repeat("report preamble\n", 20) + csv))
		assert.ErrorIs(t, err, ErrNoHeadersFound)
	})

	t.Run("explicit header row override", func(t *testing.T) {
		data := []byte("junk line\nItem,Price\nLatte,4.50\n")

		cfg, err := DetectConfigWithOptions(data, &DetectOptions{HeaderRowIndex: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.SkipLines)
		assert.Equal(t, []string{"Item", "Price"}, cfg.Headers)
	})
}

func TestFromCSV(t *testing.T) {
	t.Run("reads rows aligned to headers", func(t *testing.T) {
		data := []byte("Item Name,Price,Category\nLatte,4.50,Drinks\nMocha,5.00,Drinks\n")

		ds, err := FromCSV("menu.csv", data)
		require.NoError(t, err)
		assert.Equal(t, "menu.csv", ds.SourceName)
		require.Len(t, ds.Rows, 2)
		assert.Equal(t, []string{"Latte", "4.50", "Drinks"}, ds.Rows[0])
	})

	t.Run("ragged rows padded with warning", func(t *testing.T) {
		data := []byte("Item Name,Price,Category\nLatte,4.50\n")

		ds, err := FromCSV("menu.csv", data)
		require.NoError(t, err)
		require.Len(t, ds.Rows, 1)
		assert.Equal(t, []string{"Latte", "4.50", ""}, ds.Rows[0])
		assert.NotEmpty(t, ds.Warnings)
	})

	t.Run("blank rows dropped", func(t *testing.T) {
		data := []byte("Item Name,Price,Category\nLatte,4.50,Drinks\n,,\n")

		ds, err := FromCSV("menu.csv", data)
		require.NoError(t, err)
		assert.Len(t, ds.Rows, 1)
	})
}

func TestFromRecords(t *testing.T) {
	ds, err := FromRecords("inline", [][]string{
		{" Item ", "Price"},
		{"Latte", "4.50"},
		{"Mocha"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Item", "Price"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"Mocha", ""}, ds.Rows[1])
	assert.Len(t, ds.Warnings, 1)

	_, err = FromRecords("empty", nil)
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	ds, err := FromRecords("inline", [][]string{{"Item"}, {"a"}, {"b"}, {"c"}})
	require.NoError(t, err)

	assert.Len(t, ds.Sample(2), 2)
	assert.Len(t, ds.Sample(0), 3)
	assert.Len(t, ds.Sample(10), 3)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"Item Name", "Price"})
	b := Fingerprint([]string{"item-name", "PRICE"})
	c := Fingerprint([]string{"Customer", "Email"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
