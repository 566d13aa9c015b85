package config

import (
	"os"
	"path/filepath"
)

// LoaderBuilder assembles a Loader with the conventional source layout:
// config.yaml, then <env>.yaml, then environment variables.
type LoaderBuilder struct {
	configPath string
	envPrefix  string
	extraFiles []string
}

// NewLoaderBuilder creates a loader builder.
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{}
}

// WithConfigPath sets the configuration directory containing config.yaml
// and the per-environment overlays.
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithEnvPrefix enables the environment variable source with the given
// prefix, e.g. "ORDERSVC".
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithExtraFile adds an explicit file on top of the conventional layout.
// Extra files override both config files and earlier extra files.
func (b *LoaderBuilder) WithExtraFile(path string) *LoaderBuilder {
	b.extraFiles = append(b.extraFiles, path)
	return b
}

// Build creates the loader and performs the initial Load.
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), 10))

		if env := GetEnv(); env != "" {
			loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), 20))
		}
	}

	for i, path := range b.extraFiles {
		loader.AddSource(NewFileSource(path, 30+i))
	}

	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, 50))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv resolves the runtime environment name.
// Priority: APP_ENV > ENV > "dev".
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
