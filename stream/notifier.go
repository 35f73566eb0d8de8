package stream

import "sync"

// Notifier broadcasts a signal to any goroutines waiting for a stream to
// change.
//
// The zero value is ready to use.
type Notifier struct {
	m     sync.Mutex
	ready chan struct{}
}

// Changed returns a channel that is closed the next time Notify() is called.
//
// If n is nil it returns a nil channel, which is never closed.
func (n *Notifier) Changed() <-chan struct{} {
	if n == nil {
		return nil
	}

	n.m.Lock()
	defer n.m.Unlock()

	if n.ready == nil {
		n.ready = make(chan struct{})
	}

	return n.ready
}

// Notify wakes all goroutines waiting on a channel returned by Changed().
func (n *Notifier) Notify() {
	n.m.Lock()
	defer n.m.Unlock()

	if n.ready != nil {
		close(n.ready)
		n.ready = nil
	}
}
