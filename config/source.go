package config

// Standard source priorities. Higher values override lower ones.
const (
	PriorityDefaults = 1
	PriorityFile     = 10
	PriorityOverride = 100
)

// Source supplies configuration data to the Loader. The returned map
// uses dot-separated keys, such as "breaker.default.cool_down".
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Priority orders merging. A higher value wins key conflicts.
	Priority() int

	// Load reads the source. A missing optional source returns an
	// empty map, not an error.
	Load() (map[string]any, error)
}
