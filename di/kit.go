package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/connectivity"
	"github.com/vibeworks/go-resilience/event"
	"github.com/vibeworks/go-resilience/health"
	"github.com/vibeworks/go-resilience/httpclient"
	"github.com/vibeworks/go-resilience/logger"
	"github.com/vibeworks/go-resilience/telemetry"
)

// Register installs every component provider on the injector.
// Components stay dormant until first invoked.
func Register(injector do.Injector, opts Options) {
	do.Provide(injector, ProvideLoader(opts))
	do.Provide(injector, ProvideLogger)
	do.Provide(injector, ProvideBreakerManager)
	do.Provide(injector, ProvideHTTPClient)
	do.Provide(injector, ProvideMonitor(opts))
	do.Provide(injector, ProvideDispatcher)
	do.Provide(injector, ProvideAggregator)
	do.Provide(injector, ProvideTelemetry)
}

// Start brings up the running components: logger, telemetry, the
// connectivity monitor, and the event bridges. Components never
// invoked before Start are created here.
func Start(ctx context.Context, injector do.Injector) error {
	if _, err := do.Invoke[*logger.CtxLogger](injector); err != nil {
		return err
	}

	tm, err := do.Invoke[*telemetry.Manager](injector)
	if err != nil {
		return err
	}
	if err := tm.Start(ctx); err != nil {
		return err
	}

	mgr, err := do.Invoke[*breaker.Manager](injector)
	if err != nil {
		return err
	}
	dispatcher, err := do.Invoke[event.Dispatcher](injector)
	if err != nil {
		return err
	}
	event.BridgeBreaker(dispatcher, mgr)

	mon, err := do.Invoke[*connectivity.Monitor](injector)
	if err != nil {
		return err
	}
	event.BridgeConnectivity(dispatcher, mon)
	return mon.Start(ctx)
}

// Shutdown tears components down in reverse dependency order.
// Stopping a component that never started is a no-op.
func Shutdown(ctx context.Context, injector do.Injector) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if mon, err := do.Invoke[*connectivity.Monitor](injector); err == nil {
		keep(mon.Stop())
	}
	if dispatcher, err := do.Invoke[event.Dispatcher](injector); err == nil {
		dispatcher.Close()
	}
	if mgr, err := do.Invoke[*breaker.Manager](injector); err == nil {
		mgr.Close()
	}
	if tm, err := do.Invoke[*telemetry.Manager](injector); err == nil {
		keep(tm.Shutdown(ctx))
	}
	return firstErr
}

// Client resolves the breaker-guarded HTTP client.
func Client(injector do.Injector) (*httpclient.Client, error) {
	return do.Invoke[*httpclient.Client](injector)
}

// Health resolves the health aggregator.
func Health(injector do.Injector) (*health.Aggregator, error) {
	return do.Invoke[*health.Aggregator](injector)
}

// Breakers resolves the breaker manager.
func Breakers(injector do.Injector) (*breaker.Manager, error) {
	return do.Invoke[*breaker.Manager](injector)
}
