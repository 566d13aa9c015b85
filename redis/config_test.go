package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid standalone config",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{"localhost:6379"},
				DB:    0,
			},
			wantErr: false,
		},
		{
			name: "valid cluster config",
			config: Config{
				Mode: "cluster",
				Addrs: []string{
					"localhost:7000",
					"localhost:7001",
					"localhost:7002",
				},
			},
			wantErr: false,
		},
		{
			name: "invalid mode",
			config: Config{
				Mode:  "invalid",
				Addrs: []string{"localhost:6379"},
			},
			wantErr: true,
			errMsg:  "invalid mode",
		},
		{
			name: "empty address list",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{},
			},
			wantErr: true,
			errMsg:  "addrs cannot be empty",
		},
		{
			name: "standalone DB out of range",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{"localhost:6379"},
				DB:    16,
			},
			wantErr: true,
			errMsg:  "db must be between 0 and 15",
		},
		{
			name: "negative pool size",
			config: Config{
				Mode:     "standalone",
				Addrs:    []string{"localhost:6379"},
				PoolSize: -1,
			},
			wantErr: true,
			errMsg:  "pool_size must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{
		Mode:  "",
		Addrs: []string{"localhost:6379"},
	}

	cfg.ApplyDefaults()

	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5, cfg.MinIdleConns)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
}

func TestConfig_Validate_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "DB 0 valid",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{"localhost:6379"},
				DB:    0,
			},
			wantErr: false,
		},
		{
			name: "DB 15 valid",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{"localhost:6379"},
				DB:    15,
			},
			wantErr: false,
		},
		{
			name: "DB -1 invalid",
			config: Config{
				Mode:  "standalone",
				Addrs: []string{"localhost:6379"},
				DB:    -1,
			},
			wantErr: true,
		},
		{
			name: "PoolSize 0 valid",
			config: Config{
				Mode:     "standalone",
				Addrs:    []string{"localhost:6379"},
				PoolSize: 0,
			},
			wantErr: false,
		},
		{
			name: "MinIdleConns 0 valid",
			config: Config{
				Mode:         "standalone",
				Addrs:        []string{"localhost:6379"},
				MinIdleConns: 0,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := Config{
		Mode:         "cluster",
		Addrs:        []string{"localhost:7000"},
		PoolSize:     20,
		MinIdleConns: 10,
		MaxRetries:   5,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	cfg.ApplyDefaults()

	// values already set must not be overwritten
	assert.Equal(t, "cluster", cfg.Mode)
	assert.Equal(t, 20, cfg.PoolSize)
	assert.Equal(t, 10, cfg.MinIdleConns)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
}

