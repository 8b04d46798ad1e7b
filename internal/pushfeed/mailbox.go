package pushfeed

import "sync"

// Mailbox is a single-slot, latest-wins delivery buffer. Offer never blocks; a pending
// value is replaced by the next one unless supersedes says the pending value is newer.
type Mailbox[T any] struct {
	ch         chan T
	mu         sync.Mutex
	closed     bool
	supersedes func(pending, next T) bool
}

// NewMailbox creates a mailbox. A nil supersedes always lets the newest offer win.
func NewMailbox[T any](supersedes func(pending, next T) bool) *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1), supersedes: supersedes}
}

func (m *Mailbox[T]) C() <-chan T { return m.ch }

// Offer queues v and reports whether it is now the pending value.
func (m *Mailbox[T]) Offer(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- v:
		return true
	default:
	}
	// Slot is full. Only Offer sends and it holds mu, so after draining the send below cannot block.
	select {
	case pending := <-m.ch:
		if m.supersedes != nil && !m.supersedes(pending, v) {
			m.ch <- pending
			return false
		}
		m.ch <- v
		return true
	default:
		m.ch <- v
		return true
	}
}

// Close closes the channel; later offers are dropped. Safe to call more than once.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
