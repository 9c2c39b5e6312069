package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/content"
	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/store"
	"github.com/readalong/readalong-server/internal/timing"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleCollection() *timing.Collection {
	return &timing.Collection{
		Version: timing.ArtifactVersion,
		Words: []timing.Word{
			{Word: "Hello", StartMs: 0, EndMs: 300, CharStart: 0, CharEnd: 5},
			{Word: "world.", StartMs: 300, EndMs: 800, CharStart: 6, CharEnd: 12},
		},
		Sentences: []timing.Sentence{
			{Text: "Hello world.", StartMs: 0, EndMs: 800, WordStartIndex: 0, WordEndIndex: 1, CharStart: 0, CharEnd: 12},
		},
		TotalDurationMs: 800,
	}
}

func TestSaveAndGetTiming(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTiming(ctx, "book-1", sampleCollection()))

	got, err := s.GetTiming(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, timing.ArtifactVersion, got.Version)
	require.Len(t, got.Words, 2)
	assert.Equal(t, "Hello", got.Words[0].Word)
	assert.Equal(t, int64(800), got.TotalDurationMs)
	require.Len(t, got.Sentences, 1)
	assert.Equal(t, "Hello world.", got.Sentences[0].Text)
}

func TestGetTimingNotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetTiming(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTimingNotFound))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSaveAndGetContent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	artifact := content.Build("Hello world.\n\nA second paragraph.")
	require.NoError(t, s.SaveContent(ctx, "book-1", artifact))

	got, err := s.GetContent(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, artifact.DisplayText, got.DisplayText)
	assert.Len(t, got.Paragraphs, 2)
}

func TestGetContentNotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetContent(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrContentNotFound))
}

func TestDeleteContentRemovesBothKeys(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTiming(ctx, "book-1", sampleCollection()))
	require.NoError(t, s.SaveContent(ctx, "book-1", content.Build("Hello world.")))

	require.NoError(t, s.DeleteContent(ctx, "book-1"))

	_, err := s.GetTiming(ctx, "book-1")
	assert.True(t, errors.Is(err, store.ErrTimingNotFound))
	_, err = s.GetContent(ctx, "book-1")
	assert.True(t, errors.Is(err, store.ErrContentNotFound))
}

func TestDeleteUnknownContentIsNoop(t *testing.T) {
	s := setupStore(t)
	assert.NoError(t, s.DeleteContent(context.Background(), "missing"))
}

func TestListContentIDs(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ids, err := s.ListContentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SaveTiming(ctx, "book-1", sampleCollection()))
	require.NoError(t, s.SaveTiming(ctx, "book-2", sampleCollection()))

	ids, err = s.ListContentIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-1", "book-2"}, ids)
}

func TestSaveTimingOverwrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTiming(ctx, "book-1", sampleCollection()))

	updated := sampleCollection()
	updated.TotalDurationMs = 9000
	require.NoError(t, s.SaveTiming(ctx, "book-1", updated))

	got, err := s.GetTiming(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), got.TotalDurationMs)
}

func TestCanceledContext(t *testing.T) {
	s := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveTiming(ctx, "book-1", sampleCollection())
	assert.Error(t, err)
}
