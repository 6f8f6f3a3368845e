package wsutil

import (
	"context"
	"sync"
)

// Mailbox runs posted functions one at a time, in post order, on the
// goroutine that called Run. Post never blocks, so a running function may
// post more work without deadlocking.
type Mailbox struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		signal: make(chan struct{}, 1),
	}
}

// Post schedules fn to run after everything posted before it.
func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Run processes posted functions until ctx is done.
func (m *Mailbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.signal:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			fn := m.pop()
			if fn == nil {
				break
			}
			fn()
		}
	}
}

// Len returns the number of functions waiting to run.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) pop() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return fn
}
