package store

import (
	"context"
	"sync"
)

type delivery struct {
	snap Snapshot
	err  error
}

// subscriber delivers snapshots to one handler, one at a time, in the order
// they were queued.
type subscriber struct {
	handler SnapshotHandler

	mu     sync.Mutex
	queue  []delivery
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newSubscriber(handler SnapshotHandler) *subscriber {
	s := &subscriber{
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *subscriber) push(d delivery) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, d)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.queue) == 0 {
		return delivery{}, false
	}
	d := s.queue[0]
	s.queue[0] = delivery{}
	s.queue = s.queue[1:]
	return d, true
}

func (s *subscriber) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			d, ok := s.next()
			if !ok {
				break
			}
			s.handler(d.snap, d.err)
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

// cancelOnDone ties a subscription to ctx.
func cancelOnDone(ctx context.Context, sub *subscriber, cancel CancelFunc) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
}

// notifier fans collection snapshots out to subscribers.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[*subscriber]struct{})}
}

func (n *notifier) add(collection string, sub *subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[collection] == nil {
		n.subs[collection] = make(map[*subscriber]struct{})
	}
	n.subs[collection][sub] = struct{}{}
}

func (n *notifier) remove(collection string, sub *subscriber) {
	n.mu.Lock()
	if subs, ok := n.subs[collection]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(n.subs, collection)
		}
	}
	n.mu.Unlock()
	sub.close()
}

func (n *notifier) has(collection string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[collection]) > 0
}

func (n *notifier) publish(collection string, d delivery) {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subs[collection]))
	for sub := range n.subs[collection] {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	for _, sub := range subs {
		sub.push(d)
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	all := n.subs
	n.subs = make(map[string]map[*subscriber]struct{})
	n.mu.Unlock()

	for _, subs := range all {
		for sub := range subs {
			sub.close()
		}
	}
}
