package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/search"
	"github.com/readalong/readalong-server/internal/timing"
)

func setupIndex(t *testing.T) *search.SearchIndex {
	t.Helper()

	idx, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func storyCollection() *timing.Collection {
	return &timing.Collection{
		Version: timing.ArtifactVersion,
		Sentences: []timing.Sentence{
			{Text: "The quick brown fox jumps over the lazy dog.", StartMs: 0, EndMs: 3000},
			{Text: "A gentle rain fell on the quiet village.", StartMs: 3000, EndMs: 6000},
			{Text: "The fox returned at dawn.", StartMs: 6000, EndMs: 8000},
		},
		TotalDurationMs: 8000,
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexCollection(ctx, "book-1", storyCollection()))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := idx.Search(ctx, "fox", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Equal(t, "book-1", hit.ContentID)
		assert.Contains(t, hit.Text, "fox")
	}
}

func TestSearchReturnsTiming(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexCollection(ctx, "book-1", storyCollection()))

	hits, err := idx.Search(ctx, "village", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].SentenceIndex)
	assert.Equal(t, int64(3000), hits[0].StartMs)
	assert.Equal(t, int64(6000), hits[0].EndMs)
}

func TestSearchFilterByContent(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexCollection(ctx, "book-1", storyCollection()))
	require.NoError(t, idx.IndexCollection(ctx, "book-2", storyCollection()))

	hits, err := idx.Search(ctx, "fox", "book-2", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "book-2", hit.ContentID)
	}
}

func TestReindexReplacesSentences(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexCollection(ctx, "book-1", storyCollection()))

	shorter := &timing.Collection{
		Version: timing.ArtifactVersion,
		Sentences: []timing.Sentence{
			{Text: "Only one sentence now.", StartMs: 0, EndMs: 1000},
		},
		TotalDurationMs: 1000,
	}
	require.NoError(t, idx.IndexCollection(ctx, "book-1", shorter))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := idx.Search(ctx, "fox", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteCollection(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexCollection(ctx, "book-1", storyCollection()))
	require.NoError(t, idx.DeleteCollection(ctx, "book-1"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestDeleteUnknownCollectionIsNoop(t *testing.T) {
	idx := setupIndex(t)
	assert.NoError(t, idx.DeleteCollection(context.Background(), "missing"))
}

func TestDocumentID(t *testing.T) {
	id := search.DocumentID("book-1", 4)
	assert.Equal(t, "book-1:4", id)

	contentID, idx, err := search.ParseDocumentID(id)
	require.NoError(t, err)
	assert.Equal(t, "book-1", contentID)
	assert.Equal(t, 4, idx)

	// Content IDs may themselves contain colons.
	contentID, idx, err = search.ParseDocumentID("a:b:7")
	require.NoError(t, err)
	assert.Equal(t, "a:b", contentID)
	assert.Equal(t, 7, idx)

	_, _, err = search.ParseDocumentID("nocolon")
	assert.Error(t, err)
}
