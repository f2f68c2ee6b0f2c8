// Package search provides a full-text index over knowledge entries.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/xaenox/council-bot/internal/models"
)

// Index wraps a Bleve index of knowledge entries keyed by entry ID.
type Index struct {
	index bleve.Index
}

type indexedEntry struct {
	Content   string
	Tags      []string
	ProjectID string
}

// Open opens the index at path, creating it when it does not exist yet.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenInMemory returns an index that lives only for the process lifetime.
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	contentMapping := bleve.NewTextFieldMapping()
	contentMapping.Analyzer = "en"

	keywordMapping := bleve.NewTextFieldMapping()
	keywordMapping.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Content", contentMapping)
	docMapping.AddFieldMappingsAt("Tags", keywordMapping)
	docMapping.AddFieldMappingsAt("ProjectID", keywordMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes entry, replacing any previous version with the same ID.
func (i *Index) Add(entry *models.KnowledgeEntry) error {
	return i.index.Index(entry.ID.String(), toIndexed(entry))
}

// AddBatch indexes entries in a single batch.
func (i *Index) AddBatch(entries []*models.KnowledgeEntry) error {
	batch := i.index.NewBatch()
	for _, entry := range entries {
		if err := batch.Index(entry.ID.String(), toIndexed(entry)); err != nil {
			return fmt.Errorf("batch %s: %w", entry.ID, err)
		}
	}
	return i.index.Batch(batch)
}

func toIndexed(entry *models.KnowledgeEntry) indexedEntry {
	doc := indexedEntry{
		Content: entry.Content,
		Tags:    entry.Tags,
	}
	if entry.ProjectID != nil {
		doc.ProjectID = entry.ProjectID.String()
	}
	return doc
}

// Search returns the IDs of the best matches for query, highest score first.
// The query is matched against content and, exactly, against tags.
func (i *Index) Search(query string, limit int) ([]string, error) {
	content := bleve.NewMatchQuery(query)
	content.SetField("Content")
	tag := bleve.NewTermQuery(strings.ToLower(strings.TrimSpace(query)))
	tag.SetField("Tags")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(content, tag), limit, 0, false)
	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func (i *Index) Close() error {
	return i.index.Close()
}
