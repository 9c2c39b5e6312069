// Package sse implements Server-Sent Events for streaming highlight index
// updates and content lifecycle notifications to clients.
package sse

import (
	"time"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventWordHighlight carries the active word index for a content.
	EventWordHighlight EventType = "highlight.word"
	// EventSentenceHighlight carries the active sentence index for a content.
	EventSentenceHighlight EventType = "highlight.sentence"

	// EventContentLoaded signals a timing collection became available.
	EventContentLoaded EventType = "content.loaded"
	// EventContentUnloaded signals a timing collection was removed.
	EventContentUnloaded EventType = "content.unloaded"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ContentID filters delivery to clients subscribed to this content.
	// Empty string means broadcast to all clients.
	ContentID string `json:"-"`
}

// HighlightEventData is the data payload for highlight events.
type HighlightEventData struct {
	ContentID string `json:"content_id"`
	Index     int    `json:"index"`
}

// ContentEventData is the data payload for content lifecycle events.
type ContentEventData struct {
	ContentID       string `json:"content_id"`
	WordCount       int    `json:"word_count,omitempty"`
	SentenceCount   int    `json:"sentence_count,omitempty"`
	TotalDurationMs int64  `json:"total_duration_ms,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewWordHighlightEvent creates a highlight.word event.
func NewWordHighlightEvent(contentID string, index int) Event {
	return Event{
		Type:      EventWordHighlight,
		ContentID: contentID,
		Data: HighlightEventData{
			ContentID: contentID,
			Index:     index,
		},
		Timestamp: time.Now(),
	}
}

// NewSentenceHighlightEvent creates a highlight.sentence event.
func NewSentenceHighlightEvent(contentID string, index int) Event {
	return Event{
		Type:      EventSentenceHighlight,
		ContentID: contentID,
		Data: HighlightEventData{
			ContentID: contentID,
			Index:     index,
		},
		Timestamp: time.Now(),
	}
}

// NewContentLoadedEvent creates a content.loaded event.
func NewContentLoadedEvent(contentID string, words, sentences int, totalMs int64) Event {
	return Event{
		Type:      EventContentLoaded,
		ContentID: contentID,
		Data: ContentEventData{
			ContentID:       contentID,
			WordCount:       words,
			SentenceCount:   sentences,
			TotalDurationMs: totalMs,
		},
		Timestamp: time.Now(),
	}
}

// NewContentUnloadedEvent creates a content.unloaded event.
func NewContentUnloadedEvent(contentID string) Event {
	return Event{
		Type:      EventContentUnloaded,
		ContentID: contentID,
		Data: ContentEventData{
			ContentID: contentID,
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
