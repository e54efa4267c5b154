package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// FileSource reads one configuration file. Format is inferred from the
// extension (yaml, json, toml and the other viper formats).
type FileSource struct {
	path     string
	priority int
	optional bool
}

// NewFileSource creates a required file source. Loading fails if the
// file cannot be read.
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

// NewOptionalFileSource creates a file source that yields an empty map
// when the file does not exist.
func NewOptionalFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority, optional: true}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Priority() int { return s.priority }

func (s *FileSource) Load() (map[string]any, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) && s.optional {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}
	return flatten("", v.AllSettings()), nil
}

// flatten converts nested maps to dot-separated keys:
// {"breaker": {"default": {"cool_down": "30s"}}} becomes
// {"breaker.default.cool_down": "30s"}.
func flatten(prefix string, data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for nk, nv := range flatten(full, nested) {
				out[nk] = nv
			}
			continue
		}
		out[full] = value
	}
	return out
}
