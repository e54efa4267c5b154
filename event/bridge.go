package event

import (
	"context"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/connectivity"
)

// BreakerStateChanged is published on TopicBreakerStateChanged for every
// circuit transition.
type BreakerStateChanged struct {
	BaseEvent
	Change breaker.StateChange
}

// NewBreakerStateChanged wraps a breaker transition as an event.
func NewBreakerStateChanged(change breaker.StateChange) *BreakerStateChanged {
	return &BreakerStateChanged{
		BaseEvent: NewEvent(TopicBreakerStateChanged),
		Change:    change,
	}
}

// ConnectivityChanged is published on TopicConnectivityChanged for every
// online/offline edge.
type ConnectivityChanged struct {
	BaseEvent
	Change connectivity.Change
}

// NewConnectivityChanged wraps a connectivity edge as an event.
func NewConnectivityChanged(change connectivity.Change) *ConnectivityChanged {
	return &ConnectivityChanged{
		BaseEvent: NewEvent(TopicConnectivityChanged),
		Change:    change,
	}
}

// BridgeBreaker republishes every transition of the manager's breakers
// onto the hub, asynchronously. Returns the detach function.
func BridgeBreaker(d Dispatcher, m *breaker.Manager) breaker.UnsubscribeFunc {
	return m.OnStateChange(func(change breaker.StateChange) {
		d.DispatchAsync(context.Background(), NewBreakerStateChanged(change))
	})
}

// BridgeConnectivity republishes online/offline edges onto the hub.
func BridgeConnectivity(d Dispatcher, m *connectivity.Monitor) connectivity.UnsubscribeFunc {
	return m.Subscribe(func(change connectivity.Change) {
		d.DispatchAsync(context.Background(), NewConnectivityChanged(change))
	})
}
