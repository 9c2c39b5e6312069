package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for sentence documents.
//
// Sentence text gets full-text search with English stemming and term
// vectors for highlighting. Content ID is a keyword for exact filtering,
// and the millisecond fields support range queries for jump-to-time.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	contentIDFieldMapping := bleve.NewTextFieldMapping()
	contentIDFieldMapping.Analyzer = keyword.Name
	contentIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("content_id", contentIDFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	sentenceIndexFieldMapping := bleve.NewNumericFieldMapping()
	sentenceIndexFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("sentence_index", sentenceIndexFieldMapping)

	startMsFieldMapping := bleve.NewNumericFieldMapping()
	startMsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("start_ms", startMsFieldMapping)

	endMsFieldMapping := bleve.NewNumericFieldMapping()
	endMsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("end_ms", endMsFieldMapping)

	indexMapping.DefaultMapping = docMapping

	return indexMapping
}
