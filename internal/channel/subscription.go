package channel

import "sync"

// subscriptionBuffer is the per-subscriber channel capacity. Emissions to
// a full subscriber are dropped rather than blocking the update path.
const subscriptionBuffer = 16

// Subscription is one subscriber's view of an index stream. Read indexes
// from C; the channel is closed when the subscription is canceled or the
// content is unloaded.
type Subscription struct {
	C  <-chan int
	ch chan int
	id string

	once   sync.Once
	detach func(id string)
}

func newSubscription(id string, detach func(string)) *Subscription {
	ch := make(chan int, subscriptionBuffer)
	return &Subscription{
		C:      ch,
		ch:     ch,
		id:     id,
		detach: detach,
	}
}

// Cancel detaches the subscription and closes its channel. It is
// idempotent and safe to call after the content has been unloaded.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach(s.id)
		}
		close(s.ch)
	})
}

// send delivers an index without blocking, dropping it if the subscriber
// is not keeping up.
func (s *Subscription) send(idx int) bool {
	select {
	case s.ch <- idx:
		return true
	default:
		return false
	}
}
