package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// FileSource loads configuration from a single YAML/JSON/TOML file.
// A missing file is not an error so optional overlays (dev.yaml, prod.yaml)
// can be declared unconditionally.
type FileSource struct {
	path     string
	priority int
}

// NewFileSource creates a file-backed configuration source.
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{
		path:     path,
		priority: priority,
	}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

func (s *FileSource) Priority() int {
	return s.priority
}

// Load reads the file and flattens its contents to dot-separated keys.
func (s *FileSource) Load() (map[string]interface{}, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return make(map[string]interface{}), nil
		}
		return nil, fmt.Errorf("stat config file %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", s.path, err)
	}

	return flattenMap("", v.AllSettings()), nil
}

// flattenMap converts a nested map into a flat one with dot-separated keys:
// {"server": {"port": 8080}} -> {"server.port": 8080}
func flattenMap(prefix string, data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for key, value := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			for nk, nv := range flattenMap(fullKey, nested) {
				result[nk] = nv
			}
			continue
		}
		result[fullKey] = value
	}

	return result
}
