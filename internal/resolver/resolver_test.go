package resolver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/timing"
)

// gapCollection has three words with silences between them:
//
//	[0,300) "one"   gap [300,600)
//	[600,900) "two" gap [900,1200)
//	[1200,1500) "three"  trailing silence to 2000
func gapCollection() *timing.Collection {
	return &timing.Collection{
		Version: timing.ArtifactVersion,
		Words: []timing.Word{
			{Word: "one", StartMs: 0, EndMs: 300},
			{Word: "two", StartMs: 600, EndMs: 900},
			{Word: "three", StartMs: 1200, EndMs: 1500},
		},
		Sentences: []timing.Sentence{
			{Text: "one two", StartMs: 0, EndMs: 900, WordStartIndex: 0, WordEndIndex: 1},
			{Text: "three", StartMs: 1200, EndMs: 1500, WordStartIndex: 2, WordEndIndex: 2},
		},
		TotalDurationMs: 2000,
	}
}

func TestWordBoundaries(t *testing.T) {
	c := gapCollection()

	tests := []struct {
		pos  int64
		want int
	}{
		{-500, 0},  // before start clamps to first word
		{0, 0},     // exact start
		{150, 0},   // inside first word
		{300, 0},   // first word's end still resolves to it
		{450, 0},   // gap resolves to nearest preceding word
		{600, 1},   // exact second word start
		{1100, 1},  // gap after second word
		{1200, 2},  // exact third word start
		{1700, 2},  // trailing silence
		{2000, 2},  // position equal to total duration is the last word
		{2001, -1}, // past the end
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("pos=%d", tt.pos), func(t *testing.T) {
			assert.Equal(t, tt.want, Word(c, tt.pos))
		})
	}
}

func TestSentenceBoundaries(t *testing.T) {
	c := gapCollection()

	assert.Equal(t, 0, Sentence(c, 0))
	assert.Equal(t, 0, Sentence(c, 1000))
	assert.Equal(t, 1, Sentence(c, 1200))
	assert.Equal(t, 1, Sentence(c, 2000))
	assert.Equal(t, -1, Sentence(c, 2500))
	assert.Equal(t, 0, Sentence(c, -1))
}

func TestEmptyCollection(t *testing.T) {
	c := &timing.Collection{Version: timing.ArtifactVersion, TotalDurationMs: 1000}
	assert.Equal(t, -1, Word(c, 0))
	assert.Equal(t, -1, Sentence(c, 500))
}

func TestResolveMonotonic(t *testing.T) {
	c := gapCollection()

	prev := -1
	for pos := int64(0); pos <= c.TotalDurationMs; pos += 25 {
		idx := Word(c, pos)
		require.GreaterOrEqual(t, idx, prev, "index went backwards at pos %d", pos)
		prev = idx
	}
}

func bigCollection(n int) *timing.Collection {
	c := &timing.Collection{Version: timing.ArtifactVersion}
	for i := 0; i < n; i++ {
		start := int64(i) * 400
		c.Words = append(c.Words, timing.Word{
			Word:    fmt.Sprintf("w%d", i),
			StartMs: start,
			EndMs:   start + 350,
		})
	}
	c.TotalDurationMs = int64(n) * 400
	return c
}

func TestResolveLargeCollection(t *testing.T) {
	c := bigCollection(10000)

	assert.Equal(t, 0, Word(c, 0))
	assert.Equal(t, 5000, Word(c, 5000*400))
	assert.Equal(t, 9999, Word(c, c.TotalDurationMs))
}

func BenchmarkWord(b *testing.B) {
	c := bigCollection(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Word(c, int64(i%int(c.TotalDurationMs)))
	}
}
