// Package notifier tells open dashboards that the repo list changed.
package notifier

import "sync"

// Notifier fans out change pings to subscribed SSE streams. A ping carries
// no data; subscribers reload the repo list when they receive one.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives a ping after each change.
// The caller must call Unsubscribe when its stream ends.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; !ok {
		n.mu.Unlock()
		return
	}
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Count returns the number of subscribed streams.
func (n *Notifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast pings every listener without blocking. Pings coalesce: a
// listener that has not consumed the previous ping gets no second one.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
