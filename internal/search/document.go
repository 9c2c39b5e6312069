package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/readalong/readalong-server/internal/timing"
)

// SentenceDocument is the indexed form of one timed sentence.
type SentenceDocument struct {
	ID            string `json:"id"`
	ContentID     string `json:"content_id"`
	SentenceIndex int    `json:"sentence_index"`
	Text          string `json:"text"`
	StartMs       int64  `json:"start_ms"`
	EndMs         int64  `json:"end_ms"`
}

// DocumentID builds the index key for a sentence.
func DocumentID(contentID string, sentenceIndex int) string {
	return contentID + ":" + strconv.Itoa(sentenceIndex)
}

// ParseDocumentID splits an index key back into content ID and sentence index.
func ParseDocumentID(id string) (contentID string, sentenceIndex int, err error) {
	cut := strings.LastIndexByte(id, ':')
	if cut < 0 {
		return "", 0, fmt.Errorf("malformed document id %q", id)
	}
	idx, err := strconv.Atoi(id[cut+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed document id %q: %w", id, err)
	}
	return id[:cut], idx, nil
}

// SentenceToDocument converts a timed sentence to its indexed form.
func SentenceToDocument(contentID string, sentenceIndex int, s timing.Sentence) *SentenceDocument {
	return &SentenceDocument{
		ID:            DocumentID(contentID, sentenceIndex),
		ContentID:     contentID,
		SentenceIndex: sentenceIndex,
		Text:          s.Text,
		StartMs:       s.StartMs,
		EndMs:         s.EndMs,
	}
}

// ToMap converts the document to a map so field names match the mapping.
func (d *SentenceDocument) ToMap() map[string]any {
	return map[string]any{
		"id":             d.ID,
		"content_id":     d.ContentID,
		"sentence_index": d.SentenceIndex,
		"text":           d.Text,
		"start_ms":       d.StartMs,
		"end_ms":         d.EndMs,
	}
}
