// Package di wires the resilience components into a samber/do
// injector: config loader at the bottom, then logger, breaker manager,
// HTTP client, connectivity monitor, event dispatcher, health
// aggregator and telemetry. Components are created lazily on first
// Invoke and torn down in reverse order by Shutdown.
package di

import "github.com/samber/do/v2"

// Injector aliases do.Injector.
type Injector = do.Injector

// RootScope aliases do.RootScope.
type RootScope = do.RootScope

// New creates a root injector.
var New = do.New
