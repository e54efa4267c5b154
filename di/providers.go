package di

import (
	"github.com/samber/do/v2"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/config"
	"github.com/vibeworks/go-resilience/connectivity"
	"github.com/vibeworks/go-resilience/event"
	"github.com/vibeworks/go-resilience/health"
	"github.com/vibeworks/go-resilience/httpclient"
	"github.com/vibeworks/go-resilience/logger"
	"github.com/vibeworks/go-resilience/telemetry"
)

// Options controls loader construction and component wiring.
type Options struct {
	// ConfigFile points at an optional yaml/json/toml file. Missing
	// files are tolerated.
	ConfigFile string

	// Overrides wins over every other source, key by key.
	Overrides map[string]any

	// Prober overrides the connectivity prober; without it the
	// "connectivity.target" key is TCP-dialed.
	Prober connectivity.Prober
}

// ProvideLoader builds the config.Loader provider. Lowest layer, no
// dependencies.
func ProvideLoader(opts Options) func(do.Injector) (*config.Loader, error) {
	return func(do.Injector) (*config.Loader, error) {
		loader := config.NewLoader()
		if opts.ConfigFile != "" {
			loader.AddSource(config.NewOptionalFileSource(opts.ConfigFile, config.PriorityFile))
		}
		if len(opts.Overrides) > 0 {
			loader.AddSource(config.NewOverrides(opts.Overrides))
		}
		if err := loader.Load(); err != nil {
			return nil, err
		}
		return loader, nil
	}
}

// ProvideLogger initializes the global logger from the "logger" key
// and returns the root module logger.
func ProvideLogger(i do.Injector) (*logger.CtxLogger, error) {
	cfg := logger.DefaultConfig()
	if loader, err := do.Invoke[*config.Loader](i); err == nil {
		if err := loader.UnmarshalKey("logger", &cfg); err != nil {
			return nil, err
		}
	}
	if err := logger.Init(cfg); err != nil {
		return nil, err
	}
	return logger.GetLogger("resilience"), nil
}

// ProvideBreakerManager builds the breaker manager from the "breaker"
// key, overlaid on the stock defaults.
func ProvideBreakerManager(i do.Injector) (*breaker.Manager, error) {
	cfg := breaker.DefaultConfig()
	if loader, err := do.Invoke[*config.Loader](i); err == nil {
		if err := loader.UnmarshalKey("breaker", &cfg); err != nil {
			return nil, err
		}
	}
	return breaker.NewManager(cfg)
}

// ProvideHTTPClient builds the breaker-guarded HTTP client. Reads
// "http.base_url" and "http.timeout" when a loader is present.
func ProvideHTTPClient(i do.Injector) (*httpclient.Client, error) {
	mgr, err := do.Invoke[*breaker.Manager](i)
	if err != nil {
		return nil, err
	}

	opts := []httpclient.Option{
		httpclient.WithBreaker(mgr),
		httpclient.WithRetryDefaults(),
	}
	if loader, lerr := do.Invoke[*config.Loader](i); lerr == nil {
		if base := loader.GetString("http.base_url"); base != "" {
			opts = append(opts, httpclient.WithBaseURL(base))
		}
		if loader.IsSet("http.timeout") {
			opts = append(opts, httpclient.WithTimeout(loader.Viper().GetDuration("http.timeout")))
		}
	}
	return httpclient.NewClient(opts...), nil
}

// ProvideMonitor builds the connectivity monitor from the
// "connectivity" key.
func ProvideMonitor(opts Options) func(do.Injector) (*connectivity.Monitor, error) {
	return func(i do.Injector) (*connectivity.Monitor, error) {
		cfg := connectivity.DefaultConfig()
		if loader, err := do.Invoke[*config.Loader](i); err == nil {
			if err := loader.UnmarshalKey("connectivity", &cfg); err != nil {
				return nil, err
			}
		}
		var monOpts []connectivity.Option
		if opts.Prober != nil {
			monOpts = append(monOpts, connectivity.WithProber(opts.Prober))
		}
		return connectivity.New(cfg, monOpts...)
	}
}

// ProvideDispatcher builds the event dispatcher. Pool size from
// "event.pool_size".
func ProvideDispatcher(i do.Injector) (event.Dispatcher, error) {
	var opts []event.DispatcherOption
	if loader, err := do.Invoke[*config.Loader](i); err == nil {
		if size := loader.GetInt("event.pool_size"); size > 0 {
			opts = append(opts, event.WithPoolSize(size))
		}
	}
	return event.NewDispatcher(opts...), nil
}

// ProvideAggregator builds the health aggregator with the breaker and
// connectivity checkers pre-registered.
func ProvideAggregator(i do.Injector) (*health.Aggregator, error) {
	agg := health.NewAggregator(health.DefaultTimeout)
	if mgr, err := do.Invoke[*breaker.Manager](i); err == nil {
		agg.Register(health.ManagerChecker(mgr))
	}
	if mon, err := do.Invoke[*connectivity.Monitor](i); err == nil {
		agg.Register(health.ConnectivityChecker(mon))
	}
	return agg, nil
}

// ProvideTelemetry builds the telemetry manager from the "telemetry"
// key. The manager is returned unstarted.
func ProvideTelemetry(i do.Injector) (*telemetry.Manager, error) {
	cfg := telemetry.DefaultConfig()
	if loader, err := do.Invoke[*config.Loader](i); err == nil {
		if err := loader.UnmarshalKey("telemetry", &cfg); err != nil {
			return nil, err
		}
	}
	return telemetry.NewManager(cfg)
}
