// Package main provides the offline conversion pipeline CLI. It turns
// per-character alignment JSON into word and sentence timing artifacts
// that the ReadAlong server can load.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/readalong/readalong-server/internal/id"
	"github.com/readalong/readalong-server/internal/logger"
	"github.com/readalong/readalong-server/internal/pipeline"
)

func main() {
	alignmentPath := flag.String("alignment", "", "Path to alignment JSON file")
	textPath := flag.String("text", "", "Path to source text file (plain, markdown, or html)")
	audioPath := flag.String("audio", "", "Path to narration audio file")
	outputDir := flag.String("out", "", "Artifact output directory")
	contentID := flag.String("id", "", "Content ID (default: slug of the alignment file's directory)")
	gapThreshold := flag.Int64("gap-threshold", 0, "Sentence gap threshold in milliseconds (0 = default)")
	eliminateGaps := flag.Bool("eliminate-gaps", true, "Tile word windows over inter-word silences")
	batchDir := flag.String("batch", "", "Process every content subdirectory under this input directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(*logLevel),
		Environment: "development",
	})

	if *outputDir == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		AlignmentPath:  *alignmentPath,
		SourceTextPath: *textPath,
		AudioPath:      *audioPath,
		OutputDir:      *outputDir,
		ContentID:      *contentID,
		GapThresholdMs: *gapThreshold,
		EliminateGaps:  *eliminateGaps,
		Logger:         log.Logger,
	}

	if *batchDir != "" {
		batch, err := pipeline.RunBatch(ctx, *batchDir, *outputDir, opts)
		if err != nil {
			log.Error("Batch run failed", "error", err)
			os.Exit(1)
		}
		log.Info("Batch complete",
			"succeeded", len(batch.Results),
			"failed", len(batch.Failed),
		)
		if len(batch.Failed) > 0 {
			for _, failedID := range batch.Failed {
				log.Warn("Content failed", "content_id", failedID)
			}
			os.Exit(1)
		}
		return
	}

	if *alignmentPath == "" {
		fmt.Fprintln(os.Stderr, "error: -alignment is required (or use -batch)")
		flag.Usage()
		os.Exit(1)
	}

	// Derive the content ID from the alignment's directory when not given.
	opts.ContentID = id.Slug(*contentID)
	if opts.ContentID == "" {
		opts.ContentID = id.Slug(filepath.Base(filepath.Dir(*alignmentPath)))
	}
	if opts.ContentID == "" {
		fmt.Fprintln(os.Stderr, "error: could not derive a content ID, pass -id")
		flag.Usage()
		os.Exit(1)
	}

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Error("Pipeline run failed", "content_id", opts.ContentID, "error", err)
		os.Exit(1)
	}

	log.Info("Pipeline complete",
		"run_id", result.RunID,
		"content_id", result.ContentID,
		"words", result.Words,
		"sentences", result.Sentences,
		"total_duration_ms", result.TotalDurationMs,
		"output_dir", result.OutputDir,
		"fallback", result.Fallback,
	)
	for _, warning := range result.Warnings {
		log.Warn("Pipeline warning", "detail", warning)
	}
}
