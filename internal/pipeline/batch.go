package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/readalong/readalong-server/internal/id"
)

// BatchResult aggregates a directory run.
type BatchResult struct {
	Results []*Result `json:"results"`
	Failed  []string  `json:"failed,omitempty"`
}

// RunBatch processes every content subdirectory under inputDir. Each
// subdirectory's name, slugified, is its content ID and must contain
// alignment.json; text and audio files are picked up when present.
// Failures are recorded and the batch continues.
func RunBatch(ctx context.Context, inputDir, outputDir string, base Options) (*BatchResult, error) {
	logger := base.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		contentID := id.Slug(entry.Name())
		if contentID == "" {
			logger.Warn("skipping directory with unusable name", slog.String("dir", entry.Name()))
			continue
		}
		contentDir := filepath.Join(inputDir, entry.Name())

		opts := base
		opts.ContentID = contentID
		opts.OutputDir = outputDir
		opts.AlignmentPath = filepath.Join(contentDir, "alignment.json")
		opts.SourceTextPath = findFirst(contentDir, "text.txt", "text.md", "text.html")
		opts.AudioPath = findFirst(contentDir, "audio.mp3", "audio.m4a", "audio.m4b", "audio.wav")

		res, err := Run(ctx, opts)
		if err != nil {
			logger.Error("batch item failed", slog.String("content_id", contentID), slog.String("error", err.Error()))
			batch.Failed = append(batch.Failed, contentID)
			continue
		}
		batch.Results = append(batch.Results, res)
	}

	return batch, nil
}

// findFirst returns the first existing file among candidates, or "".
func findFirst(dir string, names ...string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
