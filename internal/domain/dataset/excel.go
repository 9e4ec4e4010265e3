package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FromXLSX reads the first populated sheet of an Excel workbook into a
// Dataset, locating the header row with the same keyword scoring used for
// delimited files.
func FromXLSX(sourceName string, reader io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findDataSheet(f)
	if sheetName == "" {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	headerIdx := findExcelHeaderRow(rows)
	if headerIdx < 0 {
		return nil, ErrNoHeadersFound
	}

	ds, err := FromRecords(sourceName, rows[headerIdx:])
	if err != nil {
		return nil, err
	}
	ds.SkipLines = headerIdx
	return ds, nil
}

// findDataSheet returns the first sheet that contains any rows.
func findDataSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err == nil && len(rows) > 0 {
			return name
		}
	}
	return ""
}

// findExcelHeaderRow scores the first 20 rows the same way findHeaderRow
// scores delimited lines: column count dominates, keyword hits break ties.
func findExcelHeaderRow(rows [][]string) int {
	bestIdx := -1
	bestScore := 0

	for i, row := range rows {
		if i > 20 {
			break
		}

		count := 0
		keywordMatches := 0
		for _, cell := range row {
			cell = strings.ToLower(strings.TrimSpace(cell))
			if cell == "" {
				continue
			}
			count++
			for _, kw := range headerKeywords {
				if strings.Contains(cell, kw) {
					keywordMatches++
					break
				}
			}
		}
		if count < 2 {
			continue
		}

		score := count*10 + keywordMatches
		if keywordMatches > 0 {
			score += 100 // keyword rows beat wider metadata rows
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return bestIdx
}
