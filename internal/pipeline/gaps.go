package pipeline

import "github.com/readalong/readalong-server/internal/timing"

// maxGapBridgeMs is the longest silence folded entirely into the
// preceding word. Longer silences are split between neighbors so neither
// word claims an implausible stretch of audio.
const maxGapBridgeMs = 500

// eliminateGaps closes the silences between consecutive words so that the
// word windows tile the audio. Short gaps extend the earlier word to the
// next word's start; long gaps split at the midpoint.
func eliminateGaps(words []timing.Word) {
	for i := 0; i < len(words)-1; i++ {
		gap := words[i+1].StartMs - words[i].EndMs
		if gap <= 0 {
			continue
		}
		if gap < maxGapBridgeMs {
			words[i].EndMs = words[i+1].StartMs
			continue
		}
		mid := words[i].EndMs + gap/2
		words[i].EndMs = mid
		words[i+1].StartMs = mid
	}
}

// realignSentences recomputes sentence windows from their member words
// after the word windows changed.
func realignSentences(c *timing.Collection) {
	for i := range c.Sentences {
		s := &c.Sentences[i]
		s.StartMs = c.Words[s.WordStartIndex].StartMs
		s.EndMs = c.Words[s.WordEndIndex].EndMs
	}
}
