// Package event is an in-process async event hub. It bridges breaker and
// connectivity transitions onto application-defined topics so UI layers
// and background workers subscribe to one hub instead of to each
// component.
package event

import "time"

// Topics published by the built-in bridges.
const (
	TopicBreakerStateChanged = "breaker.state_changed"
	TopicConnectivityChanged = "connectivity.changed"
)

// Event is anything with a topic name.
type Event interface {
	// Name is the topic, e.g. "breaker.state_changed".
	Name() string
}

// BaseEvent can be embedded by concrete events.
type BaseEvent struct {
	name       string
	occurredAt time.Time
}

// NewEvent creates a base event stamped with now.
func NewEvent(name string) BaseEvent {
	return BaseEvent{name: name, occurredAt: time.Now()}
}

// Name returns the topic.
func (e BaseEvent) Name() string { return e.name }

// OccurredAt returns when the event was created.
func (e BaseEvent) OccurredAt() time.Time { return e.occurredAt }
