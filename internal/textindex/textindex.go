// Package textindex maintains the bleve full-text index that backs
// keyword search. Document content is analyzed but not stored; the
// sqlite store remains the single source of document text.
package textindex

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// IndexedDocument is the shape handed to bleve for analysis.
type IndexedDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Hit is a keyword search match.
type Hit struct {
	ID    string
	Title string
	Score float64
}

// Index wraps a bleve index stored under a directory.
type Index struct {
	idx bleve.Index
}

// Open opens the text index at dir, creating it when absent.
func Open(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(dir, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open text index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Reset destroys the index directory and creates a fresh index. Used
// when rebuilding from the document store.
func Reset(dir string) (*Index, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset text index dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create text index dir: %w", err)
	}
	idx, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Add indexes or reindexes a document under its ID.
func (x *Index) Add(id string, doc IndexedDocument) error {
	if err := x.idx.Index(id, doc); err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	return nil
}

// Remove deletes a document from the index. Removing an unknown ID is
// not an error.
func (x *Index) Remove(id string) error {
	if err := x.idx.Delete(id); err != nil {
		return fmt.Errorf("remove document %s: %w", id, err)
	}
	return nil
}

// Search runs a keyword query over titles and content. Title matches
// are boosted above content matches.
func (x *Index) Search(query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")
	contentQuery.SetBoost(1.0)
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)

	queries := []blevequery.Query{contentQuery, titleQuery}
	disjunction := bleve.NewDisjunctionQuery(queries...)

	req := bleve.NewSearchRequestOptions(disjunction, topK, 0, false)
	req.Fields = []string{"title"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search text index: %w", err)
	}

	var hits []Hit
	for _, hit := range res.Hits {
		title, _ := hit.Fields["title"].(string)
		hits = append(hits, Hit{
			ID:    hit.ID,
			Title: title,
			Score: hit.Score,
		})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (x *Index) Count() (uint64, error) {
	return x.idx.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = true
	titleField.Index = true
	docMapping.AddFieldMappingsAt("title", titleField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = true
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("source", sourceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
