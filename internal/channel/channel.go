// Package channel is the runtime update channel: it takes raw playback
// positions, resolves them against loaded timing collections, and fans
// distinct word and sentence indexes out to subscribers at a bounded rate.
package channel

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/readalong/readalong-server/internal/id"
	"github.com/readalong/readalong-server/internal/resolver"
	"github.com/readalong/readalong-server/internal/timing"
)

// DefaultEmitInterval spaces highlight emissions per content. Position
// updates arriving faster than this are sampled leading-and-trailing: the
// first update in a window emits immediately, the latest update in the
// window emits when it closes.
const DefaultEmitInterval = 100 * time.Millisecond

// State describes a content entry's lifecycle.
type State string

// Content entry states.
const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
)

// neverEmitted is the sentinel for "no index emitted yet". It must differ
// from every resolver result, including -1.
const neverEmitted = math.MinInt

// Channel multiplexes playback position updates for any number of loaded
// contents. All methods are safe for concurrent use.
type Channel struct {
	mu           sync.RWMutex
	entries      map[string]*entry
	emitInterval time.Duration
	logger       *slog.Logger
}

// entry holds per-content state: the loaded collection, the emission
// sample window, and the subscriber sets.
type entry struct {
	mu         sync.Mutex
	state      State
	collection *timing.Collection

	lastWord     int
	lastSentence int

	pendingWord     int
	pendingSentence int
	hasPending      bool

	timer       *time.Timer
	timerActive bool

	wordSubs     map[string]*Subscription
	sentenceSubs map[string]*Subscription
}

// New creates an update channel. A zero emitInterval uses
// DefaultEmitInterval. A nil logger discards logs.
func New(emitInterval time.Duration, logger *slog.Logger) *Channel {
	if emitInterval <= 0 {
		emitInterval = DefaultEmitInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Channel{
		entries:      make(map[string]*entry),
		emitInterval: emitInterval,
		logger:       logger,
	}
}

// Load installs a timing collection for a content ID, replacing any
// previous one. Existing subscribers stay attached; emission state resets
// so the next update emits unconditionally.
func (c *Channel) Load(contentID string, collection *timing.Collection) {
	e := c.getOrCreate(contentID)

	e.mu.Lock()
	e.state = StateLoading
	e.collection = collection
	e.lastWord = neverEmitted
	e.lastSentence = neverEmitted
	e.hasPending = false
	e.state = StateLoaded
	e.mu.Unlock()

	c.logger.Debug("content loaded into update channel",
		slog.String("content_id", contentID),
		slog.Int("words", len(collection.Words)),
		slog.Int("sentences", len(collection.Sentences)))
}

// Unload removes a content entry and cancels its subscriptions. Unloading
// an unknown ID is a no-op.
func (c *Channel) Unload(contentID string) {
	c.mu.Lock()
	e, ok := c.entries[contentID]
	if ok {
		delete(c.entries, contentID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.state = StateUnloaded
	if e.timer != nil {
		e.timer.Stop()
		e.timerActive = false
	}
	subs := make([]*Subscription, 0, len(e.wordSubs)+len(e.sentenceSubs))
	for _, s := range e.wordSubs {
		subs = append(subs, s)
	}
	for _, s := range e.sentenceSubs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	// Cancel outside the entry lock; Cancel detaches via the entry lock.
	for _, s := range subs {
		s.Cancel()
	}

	c.logger.Debug("content unloaded from update channel", slog.String("content_id", contentID))
}

// Shutdown unloads every content entry.
func (c *Channel) Shutdown() {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for contentID := range c.entries {
		ids = append(ids, contentID)
	}
	c.mu.RUnlock()

	for _, contentID := range ids {
		c.Unload(contentID)
	}
}

// State reports the lifecycle state for a content ID.
func (c *Channel) State(contentID string) State {
	c.mu.RLock()
	e, ok := c.entries[contentID]
	c.mu.RUnlock()
	if !ok {
		return StateUnloaded
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Collection returns the loaded collection for a content ID, or nil.
func (c *Channel) Collection(contentID string) *timing.Collection {
	c.mu.RLock()
	e, ok := c.entries[contentID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateLoaded {
		return nil
	}
	return e.collection
}

// ContentIDs lists the IDs with loaded collections.
func (c *Channel) ContentIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for contentID, e := range c.entries {
		e.mu.Lock()
		loaded := e.state == StateLoaded
		e.mu.Unlock()
		if loaded {
			ids = append(ids, contentID)
		}
	}
	return ids
}

// OnPositionUpdate feeds a raw playback position for a content ID.
// Updates for unknown or unloaded IDs are dropped. Positions are clamped
// into [0, totalDurationMs] before resolving, then emitted to subscribers
// if the resolved indexes changed, subject to the emit interval.
func (c *Channel) OnPositionUpdate(contentID string, positionMs int64) {
	c.mu.RLock()
	e, ok := c.entries[contentID]
	c.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateLoaded {
		return
	}

	if positionMs < 0 {
		positionMs = 0
	}
	if positionMs > e.collection.TotalDurationMs {
		positionMs = e.collection.TotalDurationMs
	}

	w := resolver.Word(e.collection, positionMs)
	s := resolver.Sentence(e.collection, positionMs)

	if !e.timerActive {
		// Leading edge: emit immediately and open a sample window.
		e.emitLocked(w, s)
		e.timerActive = true
		if e.timer == nil {
			e.timer = time.AfterFunc(c.emitInterval, func() { c.flush(e) })
		} else {
			e.timer.Reset(c.emitInterval)
		}
		return
	}

	// Inside a window: keep only the newest sample.
	e.pendingWord = w
	e.pendingSentence = s
	e.hasPending = true
}

// flush closes a sample window, emitting the trailing sample if one
// arrived. Emitting keeps the window open for another interval.
func (c *Channel) flush(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLoaded {
		e.timerActive = false
		return
	}

	if e.hasPending {
		e.emitLocked(e.pendingWord, e.pendingSentence)
		e.hasPending = false
		e.timer.Reset(c.emitInterval)
		return
	}
	e.timerActive = false
}

// emitLocked delivers distinct indexes to subscribers. Caller holds e.mu.
func (e *entry) emitLocked(word, sentence int) {
	if word != e.lastWord {
		e.lastWord = word
		for _, s := range e.wordSubs {
			s.send(word)
		}
	}
	if sentence != e.lastSentence {
		e.lastSentence = sentence
		for _, s := range e.sentenceSubs {
			s.send(sentence)
		}
	}
}

// WordIndexStream subscribes to the word index stream for a content ID.
// Subscribing before the content loads is allowed; indexes flow once it
// does.
func (c *Channel) WordIndexStream(contentID string) *Subscription {
	e := c.getOrCreate(contentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := newSubscription(id.MustGenerate("sub"), func(subID string) {
		e.mu.Lock()
		delete(e.wordSubs, subID)
		e.mu.Unlock()
	})
	e.wordSubs[sub.id] = sub
	return sub
}

// SentenceIndexStream subscribes to the sentence index stream for a
// content ID.
func (c *Channel) SentenceIndexStream(contentID string) *Subscription {
	e := c.getOrCreate(contentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := newSubscription(id.MustGenerate("sub"), func(subID string) {
		e.mu.Lock()
		delete(e.sentenceSubs, subID)
		e.mu.Unlock()
	})
	e.sentenceSubs[sub.id] = sub
	return sub
}

// getOrCreate returns the entry for a content ID, creating an unloaded
// one if needed.
func (c *Channel) getOrCreate(contentID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[contentID]; ok {
		return e
	}
	e := &entry{
		state:        StateUnloaded,
		lastWord:     neverEmitted,
		lastSentence: neverEmitted,
		wordSubs:     make(map[string]*Subscription),
		sentenceSubs: make(map[string]*Subscription),
	}
	c.entries[contentID] = e
	return e
}
