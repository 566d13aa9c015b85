package event

// Config holds the event component settings.
//
// Routes map event name patterns to a delivery driver, keyed with ":"
// separators ("user:updated", "order:*") because config loaders treat
// "." as a path separator. See Router for the matching rules.
type Config struct {
	Enabled    bool                   `mapstructure:"enabled"`
	PoolSize   int                    `mapstructure:"pool_size"`
	SetAllSync bool                   `mapstructure:"set_all_sync"`
	Routes     map[string]RouteConfig `mapstructure:"routes"`
}

// DefaultConfig returns the default event configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		PoolSize: 100,
	}
}
