package event

import "context"

// Listener handles one event. A returned error stops synchronous
// propagation to later listeners; return ErrStopPropagation to stop
// without signalling failure.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}
