package service

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/channel"
	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/search"
	"github.com/readalong/readalong-server/internal/sse"
	"github.com/readalong/readalong-server/internal/store"
	"github.com/readalong/readalong-server/internal/timing"
)

func setupContentService(t *testing.T) *ContentService {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	manager := sse.NewManager(logger)
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	st, err := store.New(filepath.Join(tmpDir, "db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ch := channel.New(10*time.Millisecond, logger)
	t.Cleanup(ch.Shutdown)

	svc := NewContentService(st, ch, idx, manager, logger)
	t.Cleanup(svc.Shutdown)
	return svc
}

func serviceCollection() *timing.Collection {
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

func TestLoadCollectionAndResolve(t *testing.T) {
	svc := setupContentService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadCollection(ctx, "book-1", serviceCollection(), nil))

	got, err := svc.GetTiming(ctx, "book-1")
	require.NoError(t, err)
	assert.Len(t, got.Words, 2)

	pos, err := svc.Resolve(ctx, "book-1", 400)
	require.NoError(t, err)
	assert.Equal(t, 1, pos.WordIndex)
	assert.Equal(t, 0, pos.SentenceIndex)
}

func TestLoadCollectionRejectsInvalid(t *testing.T) {
	svc := setupContentService(t)

	broken := serviceCollection()
	broken.Words[0].StartMs = 500 // starts after it ends

	err := svc.LoadCollection(context.Background(), "book-1", broken, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFormat))
}

func TestLoadCollectionRequiresID(t *testing.T) {
	svc := setupContentService(t)

	err := svc.LoadCollection(context.Background(), "", serviceCollection(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestUpdatePositionUnknownContent(t *testing.T) {
	svc := setupContentService(t)

	err := svc.UpdatePosition(context.Background(), "missing", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListContent(t *testing.T) {
	svc := setupContentService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadCollection(ctx, "book-1", serviceCollection(), nil))

	summaries, err := svc.ListContent(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "book-1", summaries[0].ContentID)
	assert.Equal(t, "loaded", summaries[0].State)
	assert.Equal(t, int64(800), summaries[0].TotalDurationMs)
}

func TestUnload(t *testing.T) {
	svc := setupContentService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadCollection(ctx, "book-1", serviceCollection(), nil))
	require.NoError(t, svc.Unload(ctx, "book-1"))

	_, err := svc.GetTiming(ctx, "book-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	summaries, err := svc.ListContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestUnloadUnknownContent(t *testing.T) {
	svc := setupContentService(t)

	err := svc.Unload(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSearchLoadedContent(t *testing.T) {
	svc := setupContentService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadCollection(ctx, "book-1", serviceCollection(), nil))

	hits, err := svc.Search(ctx, "hello", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "book-1", hits[0].ContentID)
}

func TestBackupRestoreReactivates(t *testing.T) {
	src := setupContentService(t)
	ctx := context.Background()

	require.NoError(t, src.LoadCollection(ctx, "book-1", serviceCollection(), nil))

	var buf bytes.Buffer
	_, err := src.Backup(ctx, &buf)
	require.NoError(t, err)

	dst := setupContentService(t)
	require.NoError(t, dst.Restore(ctx, &buf))

	// Restored content is live, not just persisted.
	pos, err := dst.Resolve(ctx, "book-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, pos.WordIndex)
}
