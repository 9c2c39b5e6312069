package content

import (
	"unicode"

	"github.com/readalong/readalong-server/internal/sentence"
	"github.com/readalong/readalong-server/internal/timing"
)

// FallbackTiming synthesizes a timing collection from plain text when no
// alignment data exists, spacing words evenly at wpm. Zero wpm uses the
// reading-speed default. Sentence boundaries come from punctuation alone
// since synthesized audio has no silence gaps.
func FallbackTiming(text string, wpm int) *timing.Collection {
	if wpm <= 0 {
		wpm = readingWPM
	}
	wordMs := int64(60_000 / wpm)

	// Offsets are character positions into the display text.
	runes := []rune(text)
	words := []timing.Word{}
	var cursor int64
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, timing.Word{
					Word:      string(runes[start:i]),
					StartMs:   cursor,
					EndMs:     cursor + wordMs,
					CharStart: start,
					CharEnd:   i,
				})
				cursor += wordMs
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, timing.Word{
			Word:      string(runes[start:]),
			StartMs:   cursor,
			EndMs:     cursor + wordMs,
			CharStart: start,
			CharEnd:   len(runes),
		})
	}

	sentences := sentence.NewDetector().Detect(words, text)

	c := &timing.Collection{
		Version:   timing.ArtifactVersion,
		Words:     words,
		Sentences: sentences,
	}
	c.Normalize()
	return c
}
