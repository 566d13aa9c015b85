package config

// ConfigSource is a single origin of configuration data.
// Files, environment variables and in-memory maps all implement it.
type ConfigSource interface {
	// Name identifies the source in logs and error messages.
	Name() string

	// Priority orders sources during merge. Higher values override lower ones.
	// Conventional values:
	// - defaults: 1
	// - base config file (config.yaml): 10
	// - environment config file (dev.yaml): 20
	// - environment variables: 50
	Priority() int

	// Load returns the source data as a flat map with dot-separated keys,
	// e.g. "rabbitmq.main.url".
	Load() (map[string]interface{}, error)
}
