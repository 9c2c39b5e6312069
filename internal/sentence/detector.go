// Package sentence groups timed words into sentences using punctuation
// and silence gaps in the narration.
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/readalong/readalong-server/internal/timing"
)

// DefaultGapThresholdMs is the silence gap treated as a pause at a
// punctuation boundary. Gaps of three times this length split sentences
// even without punctuation.
const DefaultGapThresholdMs int64 = 350

// Detector groups words into sentences.
type Detector struct {
	// GapThresholdMs is the pause length that confirms a punctuation
	// boundary. Zero means DefaultGapThresholdMs.
	GapThresholdMs int64
}

// NewDetector creates a detector with the default gap threshold.
func NewDetector() *Detector {
	return &Detector{GapThresholdMs: DefaultGapThresholdMs}
}

func (d *Detector) threshold() int64 {
	if d.GapThresholdMs > 0 {
		return d.GapThresholdMs
	}
	return DefaultGapThresholdMs
}

// Detect partitions words into sentences and stamps each word's
// SentenceIndex in place. Every word belongs to exactly one sentence; a
// word closing a sentence is a member of the sentence it closes.
//
// A sentence closes after word i when:
//   - the word ends with terminal punctuation that is not an
//     abbreviation, and it is the last word, or a pause of at least the
//     gap threshold follows, or the next word starts a capital; or
//   - a pause of three times the gap threshold follows, regardless of
//     punctuation.
//
// Words remaining when input ends form the final sentence.
//
// text is the display text the words' char offsets index into; when it is
// empty (or offsets fall outside it) sentence text falls back to joining
// the member words with single spaces.
func (d *Detector) Detect(words []timing.Word, text string) []timing.Sentence {
	if len(words) == 0 {
		return []timing.Sentence{}
	}

	gapThreshold := d.threshold()
	runes := []rune(text)
	sentences := []timing.Sentence{}
	start := 0 // first word of the open sentence

	for i := range words {
		// Stamp optimistically; the stamp is final because a closure
		// decision never reopens earlier words.
		words[i].SentenceIndex = len(sentences)

		last := i == len(words)-1
		var gap int64
		if !last {
			gap = words[i+1].StartMs - words[i].EndMs
		}

		closes := false
		if endsTerminal(words[i].Word) && !isAbbreviation(words[i].Word) {
			closes = last || gap >= gapThreshold || startsCapital(words[i+1].Word)
		}
		if !closes && !last && gap >= 3*gapThreshold {
			closes = true
		}

		if closes || last {
			sentences = append(sentences, d.build(words, start, i, runes))
			start = i + 1
		}
	}

	return sentences
}

// build assembles the sentence covering words[from..to] inclusive.
func (d *Detector) build(words []timing.Word, from, to int, runes []rune) timing.Sentence {
	s := timing.Sentence{
		StartMs:        words[from].StartMs,
		EndMs:          words[to].EndMs,
		WordStartIndex: from,
		WordEndIndex:   to,
		CharStart:      words[from].CharStart,
		CharEnd:        words[to].CharEnd,
	}
	s.Text = sentenceText(words[from:to+1], runes, s.CharStart, s.CharEnd)
	return s
}

// sentenceText slices the display text by character offsets, falling back
// to a space-joined reconstruction when the offsets don't fit the text.
func sentenceText(members []timing.Word, runes []rune, charStart, charEnd int) string {
	if charStart >= 0 && charStart < charEnd && charEnd <= len(runes) {
		return string(runes[charStart:charEnd])
	}
	parts := make([]string, len(members))
	for i, w := range members {
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}

// endsTerminal reports whether the token ends with sentence-terminal
// punctuation, ignoring trailing quotes.
func endsTerminal(token string) bool {
	token = strings.TrimRight(token, `"')]`)
	if token == "" {
		return false
	}
	switch token[len(token)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// startsCapital reports whether the token begins with an uppercase letter,
// ignoring leading quotes.
func startsCapital(token string) bool {
	token = strings.TrimLeft(token, `"'([`)
	r, _ := utf8.DecodeRuneInString(token)
	return unicode.IsUpper(r)
}
