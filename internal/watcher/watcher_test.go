package watcher_test

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/channel"
	"github.com/readalong/readalong-server/internal/pipeline"
	"github.com/readalong/readalong-server/internal/search"
	"github.com/readalong/readalong-server/internal/service"
	"github.com/readalong/readalong-server/internal/sse"
	"github.com/readalong/readalong-server/internal/store"
	"github.com/readalong/readalong-server/internal/timing"
	"github.com/readalong/readalong-server/internal/watcher"
)

func setupService(t *testing.T) *service.ContentService {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager := sse.NewManager(logger)
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	s, err := store.New(filepath.Join(tmpDir, "db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ch := channel.New(10*time.Millisecond, logger)
	t.Cleanup(ch.Shutdown)

	svc := service.NewContentService(s, ch, idx, manager, logger)
	t.Cleanup(svc.Shutdown)
	return svc
}

func writeArtifact(t *testing.T, root, contentID string) {
	t.Helper()

	c := &timing.Collection{
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
	data, err := json.Marshal(c)
	require.NoError(t, err)

	dir := filepath.Join(root, contentID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pipeline.TimingFileName), data, 0o644))
}

func TestStartLoadsExistingArtifacts(t *testing.T) {
	svc := setupService(t)
	root := t.TempDir()
	writeArtifact(t, root, "book-1")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := watcher.New(root, svc, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	// Pre-existing artifacts load synchronously during Start.
	c, err := svc.GetTiming(ctx, "book-1")
	require.NoError(t, err)
	require.Len(t, c.Words, 2)
}

func TestNewArtifactIsPickedUp(t *testing.T) {
	svc := setupService(t)
	root := t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := watcher.New(root, svc, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	writeArtifact(t, root, "book-2")

	require.Eventually(t, func() bool {
		_, err := svc.GetTiming(ctx, "book-2")
		return err == nil
	}, 10*time.Second, 50*time.Millisecond, "artifact should be loaded after settling")
}

func TestRemovedArtifactUnloads(t *testing.T) {
	svc := setupService(t)
	root := t.TempDir()
	writeArtifact(t, root, "book-3")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := watcher.New(root, svc, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	_, err = svc.GetTiming(ctx, "book-3")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "book-3", pipeline.TimingFileName)))

	require.Eventually(t, func() bool {
		_, err := svc.GetTiming(ctx, "book-3")
		return err != nil
	}, 10*time.Second, 50*time.Millisecond, "content should unload after artifact removal")
}
