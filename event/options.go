package event

type listenerEntry struct {
	id       uint64
	listener Listener
	priority int
	async    bool
	once     bool
}

// SubscribeOption tunes one subscription.
type SubscribeOption func(*listenerEntry)

// WithPriority orders synchronous delivery: lower runs first, default 0.
func WithPriority(priority int) SubscribeOption {
	return func(e *listenerEntry) { e.priority = priority }
}

// WithAsync runs this listener on the pool even under synchronous
// dispatch. Its errors never affect propagation.
func WithAsync() SubscribeOption {
	return func(e *listenerEntry) { e.async = true }
}

// WithOnce auto-unsubscribes after the first delivery.
func WithOnce() SubscribeOption {
	return func(e *listenerEntry) { e.once = true }
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcher)

// WithPoolSize sizes the async worker pool, default 100.
func WithPoolSize(size int) DispatcherOption {
	return func(d *dispatcher) {
		if size > 0 {
			d.poolSize = size
		}
	}
}
