// Package config loads configuration from priority-ordered sources and
// merges them into one viper-backed view. Components declare their own
// config structs with mapstructure tags and validate them with ozzo
// rules; the loader only gathers and decodes.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Loader merges configuration sources. Not safe for concurrent use
// while Load is running; typical use is load-once at startup.
type Loader struct {
	sources []Source
	merged  map[string]any
	v       *viper.Viper
}

// NewLoader returns an empty loader.
func NewLoader(sources ...Source) *Loader {
	return &Loader{
		sources: sources,
		merged:  make(map[string]any),
		v:       viper.New(),
	}
}

// AddSource registers another source. Takes effect on the next Load.
func (l *Loader) AddSource(source Source) {
	l.sources = append(l.sources, source)
}

// Load reads every source and merges them, lowest priority first, so a
// higher priority source overrides key by key rather than wholesale.
func (l *Loader) Load() error {
	sorted := make([]Source, len(l.sources))
	copy(sorted, l.sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	l.merged = make(map[string]any)
	for _, source := range sorted {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: load %s: %w", source.Name(), err)
		}
		for key, value := range data {
			l.merged[key] = value
		}
	}

	l.v = viper.New()
	for key, value := range l.merged {
		l.v.Set(key, value)
	}
	return nil
}

// Unmarshal decodes the whole merged configuration into v.
func (l *Loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey decodes one subtree, such as "breaker", into v.
func (l *Loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Get returns the raw value for a dot-separated key.
func (l *Loader) Get(key string) any { return l.v.Get(key) }

// GetString returns the value for key as a string.
func (l *Loader) GetString(key string) string { return l.v.GetString(key) }

// GetInt returns the value for key as an int.
func (l *Loader) GetInt(key string) int { return l.v.GetInt(key) }

// GetBool returns the value for key as a bool.
func (l *Loader) GetBool(key string) bool { return l.v.GetBool(key) }

// IsSet reports whether any source provided the key.
func (l *Loader) IsSet(key string) bool { return l.v.IsSet(key) }

// AllSettings returns the merged configuration as a nested map.
func (l *Loader) AllSettings() map[string]any { return l.v.AllSettings() }

// Viper exposes the merged view for code that expects a *viper.Viper.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Sources lists the registered source names in merge order.
func (l *Loader) Sources() []string {
	sorted := make([]Source, len(l.sources))
	copy(sorted, l.sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.Name()
	}
	return names
}

// String describes the loader for logs.
func (l *Loader) String() string {
	return "config.Loader[" + strings.Join(l.Sources(), " < ") + "]"
}
