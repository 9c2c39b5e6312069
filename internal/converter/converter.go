// Package converter turns per-character speech synthesis alignment data
// into word-level timing records.
package converter

import (
	"encoding/json/v2"
	"math"
	"strings"

	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/timing"
)

// trailingBufferMs pads the final word's end past its last character
// timestamp, since the alignment carries no end time for it.
const trailingBufferMs = 500

// Alignment is per-character timing data from a speech synthesis provider.
// Characters and StartTimes are parallel: StartTimes[i] is the second at
// which Characters[i] begins in the audio.
type Alignment struct {
	Characters []string
	StartTimes []float64
}

// Envelope types mirror the provider's JSON. Fields are pointers so a
// missing key is distinguishable from an empty array.
type alignmentEnvelope struct {
	Alignment *alignmentBody `json:"alignment"`
}

type alignmentBody struct {
	Characters *[]string  `json:"characters"`
	StartTimes *[]float64 `json:"character_start_times_seconds"`
}

// ParseAlignment decodes provider alignment JSON. A missing alignment
// object or missing parallel array is a format error naming the field.
func ParseAlignment(data []byte) (*Alignment, error) {
	var env alignmentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeFormat, "decode alignment json")
	}

	if env.Alignment == nil {
		return nil, errors.Format(`alignment data is missing required field "alignment"`)
	}
	if env.Alignment.Characters == nil {
		return nil, errors.Format(`alignment data is missing required field "alignment.characters"`)
	}
	if env.Alignment.StartTimes == nil {
		return nil, errors.Format(`alignment data is missing required field "alignment.character_start_times_seconds"`)
	}

	a := &Alignment{
		Characters: *env.Alignment.Characters,
		StartTimes: *env.Alignment.StartTimes,
	}
	if len(a.Characters) != len(a.StartTimes) {
		return nil, errors.Formatf("alignment arrays differ in length: %d characters, %d start times",
			len(a.Characters), len(a.StartTimes))
	}
	return a, nil
}

// Convert scans the character stream and produces one timing record per
// run of non-whitespace characters. A word starts at its first character's
// timestamp and ends at the next non-whitespace character's timestamp; the
// final word ends a trailing buffer past its last character's timestamp.
//
// Empty alignment yields an empty word list, not an error.
func Convert(a *Alignment) ([]timing.Word, error) {
	if len(a.Characters) != len(a.StartTimes) {
		return nil, errors.Formatf("alignment arrays differ in length: %d characters, %d start times",
			len(a.Characters), len(a.StartTimes))
	}

	words := []timing.Word{}

	var (
		current   strings.Builder
		startMs   int64
		charStart int
		inWord    bool
	)

	flush := func(endIdx int) {
		// endIdx is the index just past the word's last character.
		endMs := nextWordStartMs(a, endIdx)
		if endMs < 0 {
			// No character follows: close against the last character
			// timestamp plus the trailing buffer.
			endMs = toMs(a.StartTimes[endIdx-1]) + trailingBufferMs
		}
		words = append(words, timing.Word{
			Word:      current.String(),
			StartMs:   startMs,
			EndMs:     endMs,
			CharStart: charStart,
			CharEnd:   endIdx,
		})
		current.Reset()
		inWord = false
	}

	for i, ch := range a.Characters {
		if isWhitespace(ch) {
			if inWord {
				flush(i)
			}
			continue
		}
		if !inWord {
			inWord = true
			startMs = toMs(a.StartTimes[i])
			charStart = i
		}
		current.WriteString(ch)
	}
	if inWord {
		flush(len(a.Characters))
	}

	return words, nil
}

// nextWordStartMs looks ahead from index from for the next non-whitespace
// character and returns its timestamp, or -1 if none remains.
func nextWordStartMs(a *Alignment, from int) int64 {
	for i := from; i < len(a.Characters); i++ {
		if !isWhitespace(a.Characters[i]) {
			return toMs(a.StartTimes[i])
		}
	}
	return -1
}

func isWhitespace(ch string) bool {
	return strings.TrimSpace(ch) == ""
}

func toMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
