package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5007, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./gcadg.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.RecentLogsLimit)
	assert.Equal(t, 60, cfg.RequestTimeoutSec)
	assert.False(t, cfg.RateLimit.TrustForwardedFor)

	det := cfg.DetectorConfig()
	assert.Equal(t, 100, det.Trees)
	assert.Equal(t, 256, det.SampleSize)
	assert.Equal(t, 0.05, det.Contamination)
	assert.Equal(t, int64(42), det.RandomSeed)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GCADG_PORT", "9000")
	t.Setenv("GCADG_DATABASE_DRIVER", "postgres")
	t.Setenv("GCADG_DATABASE_DSN", "postgres://gcadg@localhost/gcadg?sslmode=disable")
	t.Setenv("GCADG_LOG_LEVEL", "debug")
	t.Setenv("GCADG_DETECTOR_CONTAMINATION", "0.1")
	t.Setenv("GCADG_ALLOWED_ORIGINS", "http://localhost:3000,https://grid.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://gcadg@localhost/gcadg?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.1, cfg.Detector.Contamination)
	assert.Equal(t, []string{"http://localhost:3000", "https://grid.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcadg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8088
database:
  driver: sqlite
  dsn: /var/lib/gcadg/grid.db
detector:
  trees: 50
rate_limit:
  anomalies_per_minute: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Port)
	assert.Equal(t, "/var/lib/gcadg/grid.db", cfg.Database.DSN)
	assert.Equal(t, 50, cfg.Detector.Trees)
	assert.Equal(t, 256, cfg.Detector.SampleSize)
	assert.Equal(t, 5, cfg.RateLimit.AnomaliesPerMinute)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mssql" }},
		{"contamination too high", func(c *Config) { c.Detector.Contamination = 0.5 }},
		{"no trees", func(c *Config) { c.Detector.Trees = 0 }},
		{"tiny sample", func(c *Config) { c.Detector.SampleSize = 1 }},
		{"no request timeout", func(c *Config) { c.RequestTimeoutSec = 0 }},
		{"negative request timeout", func(c *Config) { c.RequestTimeoutSec = -5 }},
		{"no shutdown timeout", func(c *Config) { c.ShutdownTimeoutSec = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.RecentLogsLimit = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.RecentLogsLimit)
}

func valid() *Config {
	return &Config{
		Port:     5007,
		Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Detector: DetectorConfig{Trees: 10, SampleSize: 16, Contamination: 0.05},

		RequestTimeoutSec:  60,
		ShutdownTimeoutSec: 15,
	}
}

// chdir changes the working directory for the duration of the test (t.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
