package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Dataset is the normalized tabular input to detection and extraction.
// It is built once per source file and never mutated afterwards.
type Dataset struct {
	SourceName  string
	Headers     []string
	Rows        [][]string // each row padded/truncated to len(Headers)
	Delimiter   rune
	SkipLines   int
	Fingerprint string
	Warnings    []string
}

// DefaultSampleSize is the number of data rows handed to detection.
const DefaultSampleSize = 20

// Sample returns up to n leading data rows. The returned slice shares
// backing rows; callers must not mutate them.
func (d *Dataset) Sample(n int) [][]string {
	if n <= 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int { return len(d.Rows) }

// FromCSV sniffs and reads a delimited file into a Dataset.
func FromCSV(sourceName string, data []byte) (*Dataset, error) {
	return FromCSVWithOptions(sourceName, data, nil)
}

// FromCSVWithOptions reads a delimited file, honoring layout overrides.
func FromCSVWithOptions(sourceName string, data []byte, opts *DetectOptions) (*Dataset, error) {
	cfg, err := DetectConfigWithOptions(data, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff %s: %w", sourceName, err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = cfg.Delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var (
		rows     [][]string
		warnings []string
		lineNum  int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNum+1, err))
			lineNum++
			continue
		}
		if lineNum > cfg.SkipLines {
			row, ragged := fitRow(record, len(cfg.Headers))
			if ragged {
				warnings = append(warnings, fmt.Sprintf("line %d: expected %d fields, got %d", lineNum+1, len(cfg.Headers), len(record)))
			}
			if !isBlankRow(row) {
				rows = append(rows, row)
			}
		}
		lineNum++
	}

	return &Dataset{
		SourceName:  sourceName,
		Headers:     cfg.Headers,
		Rows:        rows,
		Delimiter:   cfg.Delimiter,
		SkipLines:   cfg.SkipLines,
		Fingerprint: cfg.Fingerprint,
		Warnings:    warnings,
	}, nil
}

// FromRecords builds a Dataset from already-parsed records where the first
// record is the header row, fitting each data row to the header width. Used
// by the XLSX reader and by tests.
func FromRecords(sourceName string, records [][]string) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("no header row in %s", sourceName)
	}
	headers := records[0]
	records = records[1:]

	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.TrimSpace(h)
	}

	var (
		rows     [][]string
		warnings []string
	)
	for i, record := range records {
		row, ragged := fitRow(record, len(cleaned))
		if ragged {
			warnings = append(warnings, fmt.Sprintf("row %d: expected %d fields, got %d", i+1, len(cleaned), len(record)))
		}
		if !isBlankRow(row) {
			rows = append(rows, row)
		}
	}

	return &Dataset{
		SourceName:  sourceName,
		Headers:     cleaned,
		Rows:        rows,
		Fingerprint: Fingerprint(cleaned),
		Warnings:    warnings,
	}, nil
}

// fitRow pads or truncates a record to the given width.
func fitRow(record []string, width int) ([]string, bool) {
	row := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(record) {
			row[i] = strings.TrimSpace(record[i])
		}
	}
	return row, len(record) != width
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
