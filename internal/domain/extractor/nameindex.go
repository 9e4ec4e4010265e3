package extractor

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
)

// NameIndex is an in-memory full-text index over existing entity names, used
// to warn when an import is about to create something suspiciously close to
// what is already in the store. Advisory only; it never blocks creation.
type NameIndex struct {
	index bleve.Index
}

type nameDoc struct {
	Name string `json:"name"`
}

// NewNameIndex builds an in-memory index over the given names.
func NewNameIndex(names []string) (*NameIndex, error) {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", fieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}

	batch := index.NewBatch()
	for _, name := range names {
		if err := batch.Index(name, nameDoc{Name: name}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index name %q: %w", name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to commit name index: %w", err)
	}

	return &NameIndex{index: index}, nil
}

// Similar returns existing names resembling the query, best match first.
// Exact matches are excluded: those are handled by the regular find path.
func (ni *NameIndex) Similar(name string, limit int) ([]string, error) {
	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(name))
	fuzzyQuery.SetFuzziness(2)

	searchRequest := bleve.NewSearchRequest(fuzzyQuery)
	searchRequest.Size = limit + 1

	searchResults, err := ni.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("name search failed: %w", err)
	}

	var out []string
	for _, hit := range searchResults.Hits {
		if strings.EqualFold(hit.ID, name) {
			continue
		}
		out = append(out, hit.ID)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Close releases index resources.
func (ni *NameIndex) Close() error {
	return ni.index.Close()
}
