package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for note documents.
// Text gets English stemming; owner and tags are exact-match keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true // highlighting
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	for _, field := range []string{"id", "owner_id", "tags"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = field == "id"
		docMapping.AddFieldMappingsAt(field, kw)
	}

	createdFieldMapping := bleve.NewNumericFieldMapping()
	createdFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created", createdFieldMapping)

	modifiedFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("modified", modifiedFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
