package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file types the readers understand.
var SupportedExtensions = []string{".csv", ".tsv", ".txt", ".xlsx"}

// IsSupportedFile reports whether the path has a readable extension.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// FromFile reads a dataset from disk, choosing the reader by extension.
// Anything that is not an Excel workbook goes through the delimiter sniffer.
func FromFile(path string) (*Dataset, error) {
	name := filepath.Base(path)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer f.Close()
		return FromXLSX(name, f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return FromCSV(name, data)
}
