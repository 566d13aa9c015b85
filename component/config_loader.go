package component

// ConfigLoader gives components uniform read access to configuration
// without coupling them to a concrete configuration structure.
type ConfigLoader interface {
	// Get returns the raw value for key, e.g. "redis.main.host".
	Get(key string) interface{}

	// Unmarshal decodes a configuration section into a struct.
	// An empty key decodes the whole configuration.
	//
	//	var cfgs map[string]rabbitmq.Config
	//	if err := loader.Unmarshal("rabbitmq", &cfgs); err != nil {
	//	    return err
	//	}
	Unmarshal(key string, v interface{}) error

	// GetString returns the string value for key.
	GetString(key string) string

	// GetInt returns the integer value for key.
	GetInt(key string) int

	// GetBool returns the boolean value for key.
	GetBool(key string) bool

	// IsSet reports whether key is present.
	IsSet(key string) bool
}
