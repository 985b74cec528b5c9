package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/eyes/internal/config"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:7373", cfg.BaseURL())
	assert.Equal(t, config.DefaultDOMProps, cfg.DOMProps)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "eyes.yaml")
	yml := "port: 9000\nbatch_timeout: 30s\nbrowser:\n  headless: false\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Browser.MaxSettle)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "eyes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 70000\n"), 0o644))

	_, err := config.Load(path)
	require.ErrorContains(t, err, "out of range")
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c config.Config)
	}{
		{
			name: "port and host",
			env:  map[string]string{config.EnvPort: "8181", config.EnvHost: "127.0.0.1"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, "http://127.0.0.1:8181", c.BaseURL())
			},
		},
		{
			name: "timeout in milliseconds",
			env:  map[string]string{config.EnvTimeout: "1500"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, 1500*time.Millisecond, c.BatchTimeout)
			},
		},
		{
			name: "timeout as duration",
			env:  map[string]string{config.EnvTimeout: "3m"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, 3*time.Minute, c.BatchTimeout)
			},
		},
		{name: "bad port", env: map[string]string{config.EnvPort: "abc"}, wantErr: true},
		{name: "bad timeout", env: map[string]string{config.EnvTimeout: "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			err := cfg.ApplyEnv(envMap(tt.env))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
