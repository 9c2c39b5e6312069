// Package resolver maps playback positions to word and sentence indexes
// with binary search over the timing collection.
package resolver

import (
	"sort"

	"github.com/readalong/readalong-server/internal/timing"
)

// Word returns the index of the word active at positionMs, or -1.
//
// Boundary semantics are exact: positions at or before zero resolve to the
// first word, a position equal to the total duration resolves to the last
// word, and a position past the total duration resolves to -1. Positions
// falling in a gap between words resolve to the nearest preceding word.
func Word(c *timing.Collection, positionMs int64) int {
	return resolve(len(c.Words), positionMs, c.TotalDurationMs, func(i int) int64 {
		return c.Words[i].StartMs
	})
}

// Sentence returns the index of the sentence active at positionMs, or -1.
// It follows the same boundary semantics as Word.
func Sentence(c *timing.Collection, positionMs int64) int {
	return resolve(len(c.Sentences), positionMs, c.TotalDurationMs, func(i int) int64 {
		return c.Sentences[i].StartMs
	})
}

// resolve finds the last of n records whose start is at or before
// positionMs. Records are ordered by start time, which makes the result
// monotonic in position.
func resolve(n int, positionMs, totalMs int64, startAt func(int) int64) int {
	if n == 0 {
		return -1
	}
	if positionMs > totalMs {
		return -1
	}
	if positionMs <= 0 {
		return 0
	}
	if positionMs == totalMs {
		return n - 1
	}

	// First record whose start is strictly after the position; the active
	// record is the one before it.
	idx := sort.Search(n, func(i int) bool {
		return startAt(i) > positionMs
	})
	if idx == 0 {
		// Position precedes the first record's start.
		return 0
	}
	return idx - 1
}
