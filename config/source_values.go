package config

// ValuesSource carries programmatic configuration: library defaults at
// a low priority, or caller overrides at a high one. Keys are
// dot-separated; nested maps are flattened on load.
type ValuesSource struct {
	name     string
	priority int
	values   map[string]any
}

// NewValuesSource creates a source over the given values. The map is
// not copied; callers should not mutate it after handing it over.
func NewValuesSource(name string, priority int, values map[string]any) *ValuesSource {
	return &ValuesSource{name: name, priority: priority, values: values}
}

// NewDefaults creates a defaults source at PriorityDefaults.
func NewDefaults(values map[string]any) *ValuesSource {
	return NewValuesSource("defaults", PriorityDefaults, values)
}

// NewOverrides creates an override source at PriorityOverride.
func NewOverrides(values map[string]any) *ValuesSource {
	return NewValuesSource("overrides", PriorityOverride, values)
}

func (s *ValuesSource) Name() string { return "values:" + s.name }

func (s *ValuesSource) Priority() int { return s.priority }

func (s *ValuesSource) Load() (map[string]any, error) {
	return flatten("", s.values), nil
}
