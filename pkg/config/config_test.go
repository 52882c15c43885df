package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "library", cfg.Database.Name)
	assert.Equal(t, 10, cfg.Database.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Database.RetryDelay)
	assert.True(t, cfg.OverdueScan.Enabled)
	assert.Equal(t, "0 * * * *", cfg.OverdueScan.Schedule)
	assert.Equal(t, 10*time.Minute, cfg.OverdueScan.Cooldown)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("DB_RETRY_DELAY", "250ms")
	t.Setenv("OVERDUE_SCAN_SCHEDULE", "*/5 * * * *")
	t.Setenv("DB_SEED", "true")

	cfg := NewConfig()

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.RetryDelay)
	assert.Equal(t, "*/5 * * * *", cfg.OverdueScan.Schedule)
	assert.True(t, cfg.Database.Seed)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: true,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Database.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name:    "broken schedule",
			mutate:  func(c *Config) { c.OverdueScan.Schedule = "every hour" },
			wantErr: true,
		},
		{
			name: "broken schedule ignored when scan disabled",
			mutate: func(c *Config) {
				c.OverdueScan.Enabled = false
				c.OverdueScan.Schedule = "every hour"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
