// Package search maintains a Bleve full-text index over sentence text so
// clients can jump playback to a spoken phrase.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/readalong/readalong-server/internal/timing"
)

// SearchIndex wraps a Bleve index with sentence-level operations.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// NewSearchIndex creates or opens a search index.
// If an existing index is found, it opens it. Otherwise, creates a new one.
// If the existing index is corrupted or has an outdated mapping, it's removed and recreated.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		indexMapping := buildIndexMapping()
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexCollection indexes every sentence of a timing collection,
// replacing any previously indexed sentences for the content ID.
func (s *SearchIndex) IndexCollection(ctx context.Context, contentID string, c *timing.Collection) error {
	if err := s.DeleteCollection(ctx, contentID); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for i, sent := range c.Sentences {
		doc := SentenceToDocument(contentID, i, sent)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit sentence batch for %s: %w", contentID, err)
	}

	s.logger.Debug("indexed sentences", "content_id", contentID, "count", len(c.Sentences))
	return nil
}

// DeleteCollection removes all indexed sentences for a content ID.
func (s *SearchIndex) DeleteCollection(ctx context.Context, contentID string) error {
	ids, err := s.documentIDsForContent(ctx, contentID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// documentIDsForContent lists index keys belonging to a content ID.
func (s *SearchIndex) documentIDsForContent(ctx context.Context, contentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	termQuery := bleve.NewTermQuery(contentID)
	termQuery.SetField("content_id")

	var ids []string
	// Page through; a single content's sentences fit comfortably in a
	// few pages.
	const pageSize = 1000
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(termQuery, pageSize, from, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list documents for %s: %w", contentID, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if uint64(from+len(res.Hits)) >= res.Total || len(res.Hits) == 0 {
			break
		}
	}
	return ids, nil
}

// DocumentCount returns the total number of indexed sentences.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Hit is one sentence matching a search.
type Hit struct {
	ContentID     string  `json:"contentId"`
	SentenceIndex int     `json:"sentenceIndex"`
	Text          string  `json:"text"`
	StartMs       int64   `json:"startMs"`
	EndMs         int64   `json:"endMs"`
	Score         float64 `json:"score"`
	Fragment      string  `json:"fragment,omitempty"`
}

// Search finds sentences matching the query text. A non-empty contentID
// restricts results to that content.
func (s *SearchIndex) Search(ctx context.Context, queryText, contentID string, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	textMatch := bleve.NewMatchQuery(queryText)
	textMatch.SetField("text")

	var searchQuery query.Query = textMatch
	if contentID != "" {
		idTerm := bleve.NewTermQuery(contentID)
		idTerm.SetField("content_id")
		searchQuery = bleve.NewConjunctionQuery(textMatch, idTerm)
	}

	req := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	req.Fields = []string{"content_id", "sentence_index", "text", "start_ms", "end_ms"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("text")

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}

		if cid, ok := h.Fields["content_id"].(string); ok {
			hit.ContentID = cid
		}
		if si, ok := h.Fields["sentence_index"].(float64); ok {
			hit.SentenceIndex = int(si)
		}
		if t, ok := h.Fields["text"].(string); ok {
			hit.Text = t
		}
		if ms, ok := h.Fields["start_ms"].(float64); ok {
			hit.StartMs = int64(ms)
		}
		if ms, ok := h.Fields["end_ms"].(float64); ok {
			hit.EndMs = int64(ms)
		}
		if fragments, ok := h.Fragments["text"]; ok && len(fragments) > 0 {
			hit.Fragment = fragments[0]
		}

		hits = append(hits, hit)
	}

	return hits, nil
}
