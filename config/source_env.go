package config

import (
	"os"
	"strings"
)

// EnvSource loads configuration from environment variables.
//
// With explicit bindings only the bound variables are read. Without
// bindings every variable carrying the prefix is scanned and converted:
// APP_RABBITMQ_MAIN_URL -> rabbitmq.main.url
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string
}

// NewEnvSource creates an environment variable source. prefix may be empty,
// in which case only explicitly bound variables are read.
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
	}
}

// AddBinding maps a configuration key to an environment variable name,
// e.g. AddBinding("httpserver.port", "HTTP_PORT").
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

func (s *EnvSource) Priority() int {
	return s.priority
}

func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})

	if len(s.bindings) > 0 {
		for key, envKey := range s.bindings {
			fullEnvKey := envKey
			if s.prefix != "" && !strings.HasPrefix(envKey, s.prefix+"_") {
				fullEnvKey = s.prefix + "_" + envKey
			}
			if value := os.Getenv(fullEnvKey); value != "" {
				result[key] = value
			}
		}
		return result, nil
	}

	if s.prefix == "" {
		return result, nil
	}

	prefix := s.prefix + "_"
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if !strings.HasPrefix(parts[0], prefix) {
			continue
		}

		configKey := strings.TrimPrefix(parts[0], prefix)
		configKey = strings.ToLower(configKey)
		configKey = strings.ReplaceAll(configKey, "_", ".")
		result[configKey] = parts[1]
	}

	return result, nil
}
