package devserver

import "sync"

// Notifier fans the status of each finished build out to the connected
// browsers.
type Notifier struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription receives the status of every build that finishes while it is
// open. A slow reader only ever sees the latest status.
type Subscription struct {
	C <-chan Status

	ch chan Status
	n  *Notifier
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

// Subscribe opens a subscription. Close it when the client goes away.
func (n *Notifier) Subscribe() *Subscription {
	ch := make(chan Status, 1)
	sub := &Subscription{C: ch, ch: ch, n: n}
	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	return sub
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	if _, ok := s.n.subs[s]; !ok {
		return
	}
	delete(s.n.subs, s)
	close(s.ch)
}

// Listeners returns the number of open subscriptions.
func (n *Notifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Broadcast delivers st to every subscription without blocking, replacing a
// status the subscriber has not read yet.
func (n *Notifier) Broadcast(st Status) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs {
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- st:
		default:
		}
	}
}
