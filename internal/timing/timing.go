// Package timing defines the word and sentence timing model shared by the
// conversion pipeline and the playback synchronization runtime.
package timing

import (
	"fmt"
	"time"
)

// ArtifactVersion identifies the timing artifact schema.
const ArtifactVersion = "1.0"

// Word is a single spoken word with its playback window and position in
// the display text. StartMs/EndMs are milliseconds from the start of the
// audio. CharStart/CharEnd are half-open rune offsets into the display text.
type Word struct {
	Word          string `json:"word"`
	StartMs       int64  `json:"startMs"`
	EndMs         int64  `json:"endMs"`
	SentenceIndex int    `json:"sentenceIndex"`
	CharStart     int    `json:"charStart"`
	CharEnd       int    `json:"charEnd"`
}

// Sentence is a contiguous run of words closed by a boundary decision.
// WordStartIndex/WordEndIndex are inclusive indexes into the word list.
type Sentence struct {
	Text           string `json:"text"`
	StartMs        int64  `json:"startMs"`
	EndMs          int64  `json:"endMs"`
	WordStartIndex int    `json:"wordStartIndex"`
	WordEndIndex   int    `json:"wordEndIndex"`
	CharStart      int    `json:"charStart"`
	CharEnd        int    `json:"charEnd"`
}

// Collection is the persisted timing artifact for one piece of content.
type Collection struct {
	Version         string     `json:"version"`
	Words           []Word     `json:"words"`
	Sentences       []Sentence `json:"sentences"`
	TotalDurationMs int64      `json:"totalDurationMs"`
}

// Duration returns the total duration as a time.Duration.
func (c *Collection) Duration() time.Duration {
	return time.Duration(c.TotalDurationMs) * time.Millisecond
}

// Normalize repairs derivable fields after decode: fills in the version,
// replaces nil slices with empty ones, and recomputes the total duration
// when it is missing or shorter than the last word.
func (c *Collection) Normalize() {
	if c.Version == "" {
		c.Version = ArtifactVersion
	}
	if c.Words == nil {
		c.Words = []Word{}
	}
	if c.Sentences == nil {
		c.Sentences = []Sentence{}
	}
	if n := len(c.Words); n > 0 {
		if last := c.Words[n-1].EndMs; c.TotalDurationMs < last {
			c.TotalDurationMs = last
		}
	}
	if c.TotalDurationMs < 0 {
		c.TotalDurationMs = 0
	}
}

// Validate checks the structural invariants of the collection: word order,
// sentence partitioning, and index stamp consistency. A valid empty
// collection has no words and no sentences.
func (c *Collection) Validate() error {
	if len(c.Words) == 0 {
		if len(c.Sentences) != 0 {
			return fmt.Errorf("collection has %d sentences but no words", len(c.Sentences))
		}
		return nil
	}

	for i, w := range c.Words {
		if w.StartMs < 0 {
			return fmt.Errorf("word %d %q has negative start %d", i, w.Word, w.StartMs)
		}
		if w.EndMs < w.StartMs {
			return fmt.Errorf("word %d %q ends at %d before it starts at %d", i, w.Word, w.EndMs, w.StartMs)
		}
		if i > 0 && w.StartMs < c.Words[i-1].StartMs {
			return fmt.Errorf("word %d %q starts at %d before previous word at %d", i, w.Word, w.StartMs, c.Words[i-1].StartMs)
		}
		if w.CharEnd < w.CharStart {
			return fmt.Errorf("word %d %q has inverted char range [%d,%d)", i, w.Word, w.CharStart, w.CharEnd)
		}
	}

	if len(c.Sentences) == 0 {
		return fmt.Errorf("collection has %d words but no sentences", len(c.Words))
	}

	// Sentences must partition the word list exactly, in order.
	next := 0
	for i, s := range c.Sentences {
		if s.WordStartIndex != next {
			return fmt.Errorf("sentence %d starts at word %d, expected %d", i, s.WordStartIndex, next)
		}
		if s.WordEndIndex < s.WordStartIndex || s.WordEndIndex >= len(c.Words) {
			return fmt.Errorf("sentence %d has invalid word range [%d,%d]", i, s.WordStartIndex, s.WordEndIndex)
		}
		for wi := s.WordStartIndex; wi <= s.WordEndIndex; wi++ {
			if c.Words[wi].SentenceIndex != i {
				return fmt.Errorf("word %d stamped with sentence %d, belongs to sentence %d", wi, c.Words[wi].SentenceIndex, i)
			}
		}
		next = s.WordEndIndex + 1
	}
	if next != len(c.Words) {
		return fmt.Errorf("sentences cover %d of %d words", next, len(c.Words))
	}

	if last := c.Words[len(c.Words)-1].EndMs; c.TotalDurationMs < last {
		return fmt.Errorf("total duration %d is shorter than last word end %d", c.TotalDurationMs, last)
	}

	return nil
}
