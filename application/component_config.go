package application

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/config"
)

// ConfigComponent owns the layered configuration loader and adapts it to
// the component.ConfigLoader contract every other component reads from.
type ConfigComponent struct {
	configPath string
	envPrefix  string
	extraFiles []string

	loader    *config.Loader
	appConfig *AppConfig
}

// NewConfigComponent creates the configuration component.
func NewConfigComponent(configPath, envPrefix string) *ConfigComponent {
	return &ConfigComponent{
		configPath: configPath,
		envPrefix:  envPrefix,
	}
}

// Name returns the component name.
func (c *ConfigComponent) Name() string {
	return component.ComponentConfig
}

// DependsOn returns no dependencies; configuration loads first.
func (c *ConfigComponent) DependsOn() []string {
	return []string{}
}

// Init builds the loader, performs the initial load and caches the
// framework section.
func (c *ConfigComponent) Init(ctx context.Context, _ component.ConfigLoader) error {
	builder := config.NewLoaderBuilder().
		WithConfigPath(c.configPath).
		WithEnvPrefix(c.envPrefix)
	for _, f := range c.extraFiles {
		builder.WithExtraFile(f)
	}

	loader, err := builder.Build()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c.loader = loader

	var appCfg AppConfig
	if err := loader.Unmarshal(&appCfg); err != nil {
		return fmt.Errorf("decode app configuration: %w", err)
	}
	appCfg.ApiServer.ApplyDefaults()
	if appCfg.Middleware != nil {
		appCfg.Middleware.ApplyDefaults()
	}
	c.appConfig = &appCfg

	return nil
}

// Start is a no-op.
func (c *ConfigComponent) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (c *ConfigComponent) Stop(ctx context.Context) error {
	return nil
}

// AddExtraFile layers an explicit file on top of the conventional
// config.yaml + <env>.yaml sources. Must be called before Init.
func (c *ConfigComponent) AddExtraFile(path string) {
	c.extraFiles = append(c.extraFiles, path)
}

// GetLoader returns the underlying loader.
func (c *ConfigComponent) GetLoader() *config.Loader {
	return c.loader
}

// SetLoader replaces the loader, for tests that assemble their own.
func (c *ConfigComponent) SetLoader(loader *config.Loader) {
	c.loader = loader
}

// GetAppConfig returns the cached framework section.
func (c *ConfigComponent) GetAppConfig() *AppConfig {
	return c.appConfig
}

// component.ConfigLoader implementation, delegating to the loader.

// Get returns the raw value for key.
func (c *ConfigComponent) Get(key string) interface{} {
	return c.loader.Get(key)
}

// Unmarshal decodes a configuration section; an empty key decodes the
// whole configuration.
func (c *ConfigComponent) Unmarshal(key string, v interface{}) error {
	if key == "" {
		return c.loader.Unmarshal(v)
	}
	return c.loader.UnmarshalKey(key, v)
}

// GetString returns the string value for key.
func (c *ConfigComponent) GetString(key string) string {
	return c.loader.GetString(key)
}

// GetInt returns the integer value for key.
func (c *ConfigComponent) GetInt(key string) int {
	return c.loader.GetInt(key)
}

// GetBool returns the boolean value for key.
func (c *ConfigComponent) GetBool(key string) bool {
	return c.loader.GetBool(key)
}

// IsSet reports whether key is present.
func (c *ConfigComponent) IsSet(key string) bool {
	return c.loader.IsSet(key)
}
