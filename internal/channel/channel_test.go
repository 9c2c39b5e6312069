package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/timing"
)

func testCollection() *timing.Collection {
	return &timing.Collection{
		Version: timing.ArtifactVersion,
		Words: []timing.Word{
			{Word: "one", StartMs: 0, EndMs: 300},
			{Word: "two", StartMs: 600, EndMs: 900, SentenceIndex: 1},
			{Word: "three", StartMs: 1200, EndMs: 1500, SentenceIndex: 2},
		},
		Sentences: []timing.Sentence{
			{Text: "one", StartMs: 0, EndMs: 300, WordStartIndex: 0, WordEndIndex: 0},
			{Text: "two", StartMs: 600, EndMs: 900, WordStartIndex: 1, WordEndIndex: 1},
			{Text: "three", StartMs: 1200, EndMs: 1500, WordStartIndex: 2, WordEndIndex: 2},
		},
		TotalDurationMs: 2000,
	}
}

// recv pulls the next index from a stream or fails after a timeout.
func recv(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case idx, ok := <-ch:
		require.True(t, ok, "stream closed")
		return idx
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for index")
		return 0
	}
}

// expectNone asserts no index arrives within the window.
func expectNone(t *testing.T, ch <-chan int, window time.Duration) {
	t.Helper()
	select {
	case idx, ok := <-ch:
		if ok {
			t.Fatalf("unexpected index %d", idx)
		}
	case <-time.After(window):
	}
}

func TestLoadAndState(t *testing.T) {
	c := New(0, nil)
	assert.Equal(t, StateUnloaded, c.State("book-1"))

	c.Load("book-1", testCollection())
	assert.Equal(t, StateLoaded, c.State("book-1"))
	assert.NotNil(t, c.Collection("book-1"))
	assert.Equal(t, []string{"book-1"}, c.ContentIDs())
}

func TestUnloadUnknownIsNoop(t *testing.T) {
	c := New(0, nil)
	c.Unload("nope")
	assert.Equal(t, StateUnloaded, c.State("nope"))
}

func TestPositionUpdateEmits(t *testing.T) {
	c := New(10*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	defer words.Cancel()
	sentences := c.SentenceIndexStream("book-1")
	defer sentences.Cancel()

	c.OnPositionUpdate("book-1", 700)

	assert.Equal(t, 1, recv(t, words.C))
	assert.Equal(t, 1, recv(t, sentences.C))
}

func TestDuplicateIndexesSuppressed(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	defer words.Cancel()

	c.OnPositionUpdate("book-1", 100)
	assert.Equal(t, 0, recv(t, words.C))

	// Next positions resolve to the same word; nothing new should arrive
	// even after the sample window rolls over.
	time.Sleep(20 * time.Millisecond)
	c.OnPositionUpdate("book-1", 150)
	time.Sleep(20 * time.Millisecond)
	c.OnPositionUpdate("book-1", 200)

	expectNone(t, words.C, 50*time.Millisecond)
}

func TestRapidUpdatesKeepTrailingSample(t *testing.T) {
	c := New(40*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	defer words.Cancel()

	// Leading edge emits immediately.
	c.OnPositionUpdate("book-1", 0)
	assert.Equal(t, 0, recv(t, words.C))

	// Burst inside the window: only the newest survives.
	c.OnPositionUpdate("book-1", 700)
	c.OnPositionUpdate("book-1", 1300)

	assert.Equal(t, 2, recv(t, words.C))
	expectNone(t, words.C, 60*time.Millisecond)
}

func TestPositionClamping(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	defer words.Cancel()

	// Past the end clamps to the total duration, which resolves to the
	// last word rather than -1.
	c.OnPositionUpdate("book-1", 99999)
	assert.Equal(t, 2, recv(t, words.C))

	time.Sleep(20 * time.Millisecond)

	// Negative clamps to zero.
	c.OnPositionUpdate("book-1", -50)
	assert.Equal(t, 0, recv(t, words.C))
}

func TestUpdateForUnknownContentDropped(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	// Must not panic or create entries.
	c.OnPositionUpdate("ghost", 100)
	assert.Empty(t, c.ContentIDs())
}

func TestSubscribeBeforeLoad(t *testing.T) {
	c := New(5*time.Millisecond, nil)

	words := c.WordIndexStream("book-1")
	defer words.Cancel()

	// No emissions until the content loads.
	c.OnPositionUpdate("book-1", 100)
	expectNone(t, words.C, 30*time.Millisecond)

	c.Load("book-1", testCollection())
	c.OnPositionUpdate("book-1", 700)
	assert.Equal(t, 1, recv(t, words.C))
}

func TestReloadResetsEmissionState(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	defer words.Cancel()

	c.OnPositionUpdate("book-1", 100)
	assert.Equal(t, 0, recv(t, words.C))

	// Reload: the same index emits again because state reset.
	c.Load("book-1", testCollection())
	time.Sleep(20 * time.Millisecond)
	c.OnPositionUpdate("book-1", 100)
	assert.Equal(t, 0, recv(t, words.C))
}

func TestUnloadCancelsSubscriptions(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	c.Unload("book-1")

	_, ok := <-words.C
	assert.False(t, ok, "stream should be closed after unload")

	// Cancel after unload must be safe.
	words.Cancel()
}

func TestCancelIsIdempotent(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())

	words := c.WordIndexStream("book-1")
	words.Cancel()
	words.Cancel()

	// A canceled subscription no longer receives.
	c.OnPositionUpdate("book-1", 700)
	_, ok := <-words.C
	assert.False(t, ok)
}

func TestIndependentContents(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())
	c.Load("book-2", testCollection())

	words1 := c.WordIndexStream("book-1")
	defer words1.Cancel()
	words2 := c.WordIndexStream("book-2")
	defer words2.Cancel()

	c.OnPositionUpdate("book-1", 700)
	assert.Equal(t, 1, recv(t, words1.C))
	expectNone(t, words2.C, 30*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	c := New(5*time.Millisecond, nil)
	c.Load("book-1", testCollection())
	c.Load("book-2", testCollection())

	words := c.WordIndexStream("book-1")
	c.Shutdown()

	_, ok := <-words.C
	assert.False(t, ok)
	assert.Empty(t, c.ContentIDs())
}
