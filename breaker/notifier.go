package breaker

import (
	"sync"
)

// notifier delivers state changes to subscribers in transition order.
// Publishing appends to an in-memory queue and never blocks, so the
// breaker can emit while holding its record lock without risking a
// deadlock against a listener that reads breaker state.
type notifier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []StateChange
	closed bool
	done   chan struct{}

	lmu       sync.RWMutex
	listeners map[uint64]func(StateChange)
	nextID    uint64
}

func newNotifier(buffer int) *notifier {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	n := &notifier{
		queue:     make([]StateChange, 0, buffer),
		done:      make(chan struct{}),
		listeners: make(map[uint64]func(StateChange)),
	}
	n.cond = sync.NewCond(&n.mu)
	go n.dispatch()
	return n
}

func (n *notifier) subscribe(fn func(StateChange)) UnsubscribeFunc {
	n.lmu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners[id] = fn
	n.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.lmu.Lock()
			delete(n.listeners, id)
			n.lmu.Unlock()
		})
	}
}

func (n *notifier) publish(ev StateChange) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, ev)
	n.cond.Signal()
	n.mu.Unlock()
}

// close drains the queue, then stops the dispatch goroutine.
func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.cond.Broadcast()
	n.mu.Unlock()
	<-n.done
}

func (n *notifier) dispatch() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 && n.closed {
			n.mu.Unlock()
			return
		}
		ev := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()

		n.deliver(ev)
	}
}

func (n *notifier) deliver(ev StateChange) {
	n.lmu.RLock()
	fns := make([]func(StateChange), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.lmu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				_ = recover() // a broken listener must not stall delivery
			}()
			fn(ev)
		}()
	}
}
