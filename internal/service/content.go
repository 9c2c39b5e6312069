// Package service contains the business logic coordinating storage, the
// update channel, the search index, and SSE broadcasting.
package service

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/readalong/readalong-server/internal/channel"
	"github.com/readalong/readalong-server/internal/content"
	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/resolver"
	"github.com/readalong/readalong-server/internal/search"
	"github.com/readalong/readalong-server/internal/sse"
	"github.com/readalong/readalong-server/internal/store"
	"github.com/readalong/readalong-server/internal/timing"
)

// ContentService loads and unloads narrated content. A load persists the
// timing collection, makes it resolvable through the update channel,
// indexes its sentences, and starts forwarding highlight updates to SSE
// clients.
type ContentService struct {
	store   *store.Store
	channel *channel.Channel
	search  *search.SearchIndex
	sse     *sse.Manager
	logger  *slog.Logger

	mu         sync.Mutex
	forwarders map[string][]*channel.Subscription
}

// NewContentService creates a new content service.
func NewContentService(st *store.Store, ch *channel.Channel, idx *search.SearchIndex, manager *sse.Manager, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:      st,
		channel:    ch,
		search:     idx,
		sse:        manager,
		logger:     logger,
		forwarders: make(map[string][]*channel.Subscription),
	}
}

// LoadCollection makes a timing collection live. The artifact is optional;
// when nil only the timing data is stored.
func (s *ContentService) LoadCollection(ctx context.Context, contentID string, c *timing.Collection, artifact *content.Artifact) error {
	if contentID == "" {
		return errors.Validation("content ID is required")
	}
	if c == nil {
		return errors.Validation("timing collection is required")
	}

	c.Normalize()
	if err := c.Validate(); err != nil {
		return errors.Format("invalid timing collection").WithCause(err)
	}

	if err := s.store.SaveTiming(ctx, contentID, c); err != nil {
		return fmt.Errorf("failed to save timing: %w", err)
	}
	if artifact != nil {
		if err := s.store.SaveContent(ctx, contentID, artifact); err != nil {
			return fmt.Errorf("failed to save content artifact: %w", err)
		}
	}

	return s.activate(ctx, contentID, c)
}

// activate wires a validated collection into the runtime pieces.
func (s *ContentService) activate(ctx context.Context, contentID string, c *timing.Collection) error {
	s.channel.Load(contentID, c)

	if err := s.search.IndexCollection(ctx, contentID, c); err != nil {
		// Search is best effort. Highlighting still works without it.
		s.logger.Warn("failed to index sentences",
			"content_id", contentID,
			"error", err,
		)
	}

	s.startForwarders(contentID)

	s.sse.Emit(sse.NewContentLoadedEvent(contentID, len(c.Words), len(c.Sentences), c.TotalDurationMs))

	s.logger.Info("content loaded",
		"content_id", contentID,
		"words", len(c.Words),
		"sentences", len(c.Sentences),
		"total_duration_ms", c.TotalDurationMs,
	)
	return nil
}

// LoadFromFile reads a timing artifact from disk and loads it. A sibling
// content.json is picked up when present.
func (s *ContentService) LoadFromFile(ctx context.Context, contentID, timingPath, contentPath string) error {
	data, err := os.ReadFile(timingPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundf("timing artifact not found: %s", timingPath).WithCause(err)
		}
		return fmt.Errorf("failed to read timing artifact: %w", err)
	}

	var c timing.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return errors.Formatf("malformed timing artifact: %s", timingPath).WithCause(err)
	}

	var artifact *content.Artifact
	if contentPath != "" {
		if contentData, readErr := os.ReadFile(contentPath); readErr == nil {
			var a content.Artifact
			if unmarshalErr := json.Unmarshal(contentData, &a); unmarshalErr != nil {
				s.logger.Warn("skipping malformed content artifact",
					"path", contentPath,
					"error", unmarshalErr,
				)
			} else {
				artifact = &a
			}
		}
	}

	return s.LoadCollection(ctx, contentID, &c, artifact)
}

// LoadStored activates every collection already persisted in the store.
// Called once at startup.
func (s *ContentService) LoadStored(ctx context.Context) error {
	ids, err := s.store.ListContentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored content: %w", err)
	}

	for _, contentID := range ids {
		c, err := s.store.GetTiming(ctx, contentID)
		if err != nil {
			s.logger.Warn("skipping stored content with unreadable timing",
				"content_id", contentID,
				"error", err,
			)
			continue
		}
		if err := s.activate(ctx, contentID, c); err != nil {
			return err
		}
	}

	s.logger.Info("stored content loaded", "count", len(ids))
	return nil
}

// Unload deactivates a content and removes its persisted data. Unknown
// content IDs return a not found error.
func (s *ContentService) Unload(ctx context.Context, contentID string) error {
	if s.channel.State(contentID) == channel.StateUnloaded {
		if _, err := s.store.GetTiming(ctx, contentID); err != nil {
			return errors.NotFoundf("content %s is not loaded", contentID)
		}
	}

	s.stopForwarders(contentID)
	s.channel.Unload(contentID)

	if err := s.search.DeleteCollection(ctx, contentID); err != nil {
		s.logger.Warn("failed to remove sentences from index",
			"content_id", contentID,
			"error", err,
		)
	}

	if err := s.store.DeleteContent(ctx, contentID); err != nil {
		return fmt.Errorf("failed to delete stored content: %w", err)
	}

	s.sse.Emit(sse.NewContentUnloadedEvent(contentID))

	s.logger.Info("content unloaded", "content_id", contentID)
	return nil
}

// GetTiming returns the stored timing collection for a content ID.
func (s *ContentService) GetTiming(ctx context.Context, contentID string) (*timing.Collection, error) {
	return s.store.GetTiming(ctx, contentID)
}

// GetContent returns the stored display artifact for a content ID.
func (s *ContentService) GetContent(ctx context.Context, contentID string) (*content.Artifact, error) {
	return s.store.GetContent(ctx, contentID)
}

// ContentSummary describes one loaded content.
type ContentSummary struct {
	ContentID       string `json:"contentId"`
	State           string `json:"state"`
	WordCount       int    `json:"wordCount"`
	SentenceCount   int    `json:"sentenceCount"`
	TotalDurationMs int64  `json:"totalDurationMs"`
}

// ListContent returns a summary of every content known to the channel.
func (s *ContentService) ListContent(ctx context.Context) ([]ContentSummary, error) {
	ids := s.channel.ContentIDs()

	summaries := make([]ContentSummary, 0, len(ids))
	for _, contentID := range ids {
		summary := ContentSummary{
			ContentID: contentID,
			State:     string(s.channel.State(contentID)),
		}
		if c := s.channel.Collection(contentID); c != nil {
			summary.WordCount = len(c.Words)
			summary.SentenceCount = len(c.Sentences)
			summary.TotalDurationMs = c.TotalDurationMs
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Position is a resolved playback position.
type Position struct {
	WordIndex     int `json:"wordIndex"`
	SentenceIndex int `json:"sentenceIndex"`
}

// Resolve maps a playback position to word and sentence indexes for a
// loaded content.
func (s *ContentService) Resolve(ctx context.Context, contentID string, positionMs int64) (*Position, error) {
	c := s.channel.Collection(contentID)
	if c == nil {
		return nil, errors.NotFoundf("content %s is not loaded", contentID)
	}

	return &Position{
		WordIndex:     resolver.Word(c, positionMs),
		SentenceIndex: resolver.Sentence(c, positionMs),
	}, nil
}

// UpdatePosition feeds a playback position into the update channel.
func (s *ContentService) UpdatePosition(ctx context.Context, contentID string, positionMs int64) error {
	if s.channel.State(contentID) != channel.StateLoaded {
		return errors.NotFoundf("content %s is not loaded", contentID)
	}
	s.channel.OnPositionUpdate(contentID, positionMs)
	return nil
}

// Search finds sentences matching a query, optionally within one content.
func (s *ContentService) Search(ctx context.Context, query, contentID string, limit int) ([]search.Hit, error) {
	if query == "" {
		return nil, errors.Validation("search query is required")
	}
	return s.search.Search(ctx, query, contentID, limit)
}

// Backup streams a snapshot of the persisted timing data to w.
func (s *ContentService) Backup(ctx context.Context, w io.Writer) (uint64, error) {
	return s.store.Backup(w)
}

// Restore loads a backup stream and reactivates the restored content.
func (s *ContentService) Restore(ctx context.Context, r io.Reader) error {
	if err := s.store.Restore(r); err != nil {
		return err
	}
	return s.LoadStored(ctx)
}

// startForwarders bridges the channel's index streams onto SSE events.
// Idempotent per content ID.
func (s *ContentService) startForwarders(contentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.forwarders[contentID]; ok {
		return
	}

	wordSub := s.channel.WordIndexStream(contentID)
	sentenceSub := s.channel.SentenceIndexStream(contentID)
	s.forwarders[contentID] = []*channel.Subscription{wordSub, sentenceSub}

	go func() {
		for idx := range wordSub.C {
			s.sse.Emit(sse.NewWordHighlightEvent(contentID, idx))
		}
	}()
	go func() {
		for idx := range sentenceSub.C {
			s.sse.Emit(sse.NewSentenceHighlightEvent(contentID, idx))
		}
	}()
}

// stopForwarders cancels the SSE bridge subscriptions for a content ID.
func (s *ContentService) stopForwarders(contentID string) {
	s.mu.Lock()
	subs := s.forwarders[contentID]
	delete(s.forwarders, contentID)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Shutdown stops all forwarders.
func (s *ContentService) Shutdown() {
	s.mu.Lock()
	all := s.forwarders
	s.forwarders = make(map[string][]*channel.Subscription)
	s.mu.Unlock()

	for _, subs := range all {
		for _, sub := range subs {
			sub.Cancel()
		}
	}
}
