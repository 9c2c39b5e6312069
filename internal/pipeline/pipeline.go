// Package pipeline is the offline conversion pipeline: it reads
// per-character alignment data, derives word and sentence timing, and
// writes the timing and content artifacts for a content ID.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"encoding/json/v2"

	"github.com/google/uuid"
	"github.com/simonhull/audiometa"

	"github.com/readalong/readalong-server/internal/content"
	"github.com/readalong/readalong-server/internal/converter"
	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/sentence"
	"github.com/readalong/readalong-server/internal/timing"
)

// Artifact file names written under the per-content output directory.
const (
	TimingFileName  = "timing.json"
	ContentFileName = "content.json"
)

// durationToleranceMs is how far the artifact duration may drift from the
// probed audio duration before the run records a warning.
const durationToleranceMs = 2000

// Options configures a single pipeline run.
type Options struct {
	// AlignmentPath is the provider alignment JSON file. Required.
	AlignmentPath string
	// SourceTextPath is the narration source text (plain, markdown, or
	// html). Optional; without it sentence text is reconstructed from
	// the alignment characters.
	SourceTextPath string
	// AudioPath is the narration audio file, probed to cross-check the
	// derived duration and copied next to the artifacts. Optional.
	AudioPath string
	// OutputDir is the artifact root; artifacts land in
	// OutputDir/ContentID/. Required.
	OutputDir string
	// ContentID names the content. Required.
	ContentID string
	// GapThresholdMs overrides the sentence gap threshold. Zero uses the
	// default.
	GapThresholdMs int64
	// EliminateGaps makes word windows tile the audio instead of leaving
	// inter-word silences.
	EliminateGaps bool
	// Logger for run progress. Nil discards.
	Logger *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID           string   `json:"runId"`
	ContentID       string   `json:"contentId"`
	Words           int      `json:"words"`
	Sentences       int      `json:"sentences"`
	TotalDurationMs int64    `json:"totalDurationMs"`
	OutputDir       string   `json:"outputDir"`
	Fallback        bool     `json:"fallback,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Run executes the conversion pipeline. Errors are labeled with the stage
// that produced them.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.ContentID == "" {
		return nil, errors.Validation("content ID is required")
	}
	if opts.AlignmentPath == "" {
		return nil, errors.Validation("alignment path is required")
	}
	if opts.OutputDir == "" {
		return nil, errors.Validation("output directory is required")
	}

	res := &Result{
		RunID:     uuid.NewString(),
		ContentID: opts.ContentID,
	}
	logger = logger.With(slog.String("run_id", res.RunID), slog.String("content_id", opts.ContentID))
	logger.Info("pipeline run starting", slog.String("alignment", opts.AlignmentPath))

	// Parse stage: read and decode the provider alignment.
	raw, err := os.ReadFile(opts.AlignmentPath) //#nosec G304 -- operator-supplied path
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound, "parse stage: read alignment %s", opts.AlignmentPath)
	}
	alignment, err := converter.ParseAlignment(raw)
	if err != nil {
		return nil, fmt.Errorf("parse stage: %w", err)
	}

	// Load the display text if a source is given.
	displayText := ""
	if opts.SourceTextPath != "" {
		displayText, err = content.LoadSourceText(opts.SourceTextPath)
		if err != nil {
			return nil, fmt.Errorf("parse stage: %w", err)
		}
	}
	if displayText == "" {
		displayText = joinCharacters(alignment)
	}

	// Convert stage: characters to word timing.
	words, err := converter.Convert(alignment)
	if err != nil {
		return nil, fmt.Errorf("convert stage: %w", err)
	}

	var collection *timing.Collection
	if len(words) == 0 && displayText != "" {
		// Alignment was empty but text exists: synthesize reading-speed
		// timing so the content is still navigable.
		logger.Warn("alignment has no characters, synthesizing fallback timing")
		collection = content.FallbackTiming(displayText, 0)
		res.Fallback = true
	} else {
		// Detect stage: group words into sentences.
		detector := &sentence.Detector{GapThresholdMs: opts.GapThresholdMs}
		sentences := detector.Detect(words, displayText)

		collection = &timing.Collection{
			Version:   timing.ArtifactVersion,
			Words:     words,
			Sentences: sentences,
		}
		if opts.EliminateGaps {
			eliminateGaps(collection.Words)
			realignSentences(collection)
		}
		collection.Normalize()
	}

	if err := collection.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "detect stage: derived collection is inconsistent")
	}

	// Probe the audio duration as a sanity check on the derived total.
	if opts.AudioPath != "" {
		probeAudioDuration(ctx, opts.AudioPath, collection, res, logger)
	}

	// Write stage: persist artifacts and verify they landed.
	contentDir := filepath.Join(opts.OutputDir, opts.ContentID)
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodePersistence, "write stage: create %s", contentDir)
	}

	if err := writeJSON(filepath.Join(contentDir, TimingFileName), collection); err != nil {
		return nil, fmt.Errorf("write stage: %w", err)
	}
	if err := writeJSON(filepath.Join(contentDir, ContentFileName), content.Build(displayText)); err != nil {
		return nil, fmt.Errorf("write stage: %w", err)
	}
	if opts.AudioPath != "" {
		if err := copyFile(opts.AudioPath, filepath.Join(contentDir, "audio"+filepath.Ext(opts.AudioPath))); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("copy audio: %v", err))
		}
	}

	for _, name := range []string{TimingFileName, ContentFileName} {
		if _, err := os.Stat(filepath.Join(contentDir, name)); err != nil {
			return nil, errors.Wrapf(err, errors.CodePersistence, "write stage: verify %s", name)
		}
	}

	res.Words = len(collection.Words)
	res.Sentences = len(collection.Sentences)
	res.TotalDurationMs = collection.TotalDurationMs
	res.OutputDir = contentDir

	logger.Info("pipeline run complete",
		slog.Int("words", res.Words),
		slog.Int("sentences", res.Sentences),
		slog.Int64("total_duration_ms", res.TotalDurationMs),
		slog.Int("warnings", len(res.Warnings)))

	return res, nil
}

// probeAudioDuration compares the derived duration against the audio
// file's. A mismatch or probe failure is a warning, not an error: the
// artifact is still usable.
func probeAudioDuration(ctx context.Context, path string, c *timing.Collection, res *Result, logger *slog.Logger) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("probe audio %s: %v", path, err))
		return
	}
	defer file.Close()

	audioMs := file.Audio.Duration.Milliseconds()
	if audioMs <= 0 {
		return
	}
	if diff := audioMs - c.TotalDurationMs; diff > durationToleranceMs || diff < -durationToleranceMs {
		warning := fmt.Sprintf("derived duration %dms differs from audio duration %dms", c.TotalDurationMs, audioMs)
		res.Warnings = append(res.Warnings, warning)
		logger.Warn("duration mismatch", slog.Int64("derived_ms", c.TotalDurationMs), slog.Int64("audio_ms", audioMs))
	}
	if audioMs > c.TotalDurationMs {
		// Trailing silence belongs to the content's playable range.
		c.TotalDurationMs = audioMs
	}
}

// joinCharacters reconstructs display text from the alignment characters.
func joinCharacters(a *converter.Alignment) string {
	var b []byte
	for _, ch := range a.Characters {
		b = append(b, ch...)
	}
	return string(b)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path) //#nosec G304 -- artifact path derived from operator input
	if err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "create %s", path)
	}
	if err := json.MarshalWrite(f, v); err != nil {
		f.Close()
		return errors.Wrapf(err, errors.CodePersistence, "encode %s", path)
	}
	// A failed close can mean a short write; report it so the run is not
	// marked successful over a truncated artifact.
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "close %s", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //#nosec G304 -- operator-supplied path
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //#nosec G304 -- artifact path derived from operator input
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
