package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for game documents.
//
// Titles get English stemming and term vectors for highlighting. Studio names use the
// simple analyzer so "Games" is not stemmed into every other studio. Library, tags and
// platforms are keyword fields for exact filtering and faceting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	text := func(name, analyzer string, store, vectors bool) {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = analyzer
		f.Store = store
		f.IncludeTermVectors = vectors
		doc.AddFieldMappingsAt(name, f)
	}

	// --- Full-text fields ---
	text("title", en.AnalyzerName, true, true)
	text("alternate_titles", en.AnalyzerName, true, true)
	text("series", en.AnalyzerName, true, true)
	text("description", en.AnalyzerName, false, false)
	text("developer", simple.Name, true, false)
	text("publisher", simple.Name, true, false)

	// --- Keyword fields (exact match, facetable) ---
	text("id", keyword.Name, false, false)
	text("library", keyword.Name, true, false)
	text("tags", keyword.Name, true, true)
	text("platforms", keyword.Name, true, true)

	extreme := bleve.NewBooleanFieldMapping()
	extreme.Store = true
	doc.AddFieldMappingsAt("extreme", extreme)

	// --- Numeric fields (range queries, sorting) ---
	for _, name := range []string{"release_year", "date_added", "date_modified"} {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		doc.AddFieldMappingsAt(name, f)
	}

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
