package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nickbruun/zkelection/election"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "zkelect.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"localhost:2181"}, cfg.Servers)
	assert.Equal(t, 3*time.Second, cfg.SessionTimeout)
	assert.Equal(t, "/election", cfg.Root)
	assert.Equal(t, "guid-", cfg.Prefix)
	assert.NotEmpty(t, cfg.InstanceID)
	assert.False(t, cfg.PresumeSessionLoss)
	assert.Equal(t, election.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.NoError(t, cfg.Validate())

	assert.NotEqual(t, cfg.InstanceID, Default().InstanceID)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
servers = ["zk1:2181", "zk2:2181"]
session_timeout = "10s"
root = "/services/scheduler/election"
instance_id = "scheduler-1"
presume_session_loss = true

[log]
level = "debug"
format = "json"

[retry]
initial_interval = "100ms"
max_retries = 3

[status]
addr = ":8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, cfg.Servers)
	assert.Equal(t, 10*time.Second, cfg.SessionTimeout)
	assert.Equal(t, "/services/scheduler/election", cfg.Root)
	assert.Equal(t, "guid-", cfg.Prefix)
	assert.Equal(t, "scheduler-1", cfg.InstanceID)
	assert.True(t, cfg.PresumeSessionLoss)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, ":8080", cfg.Status.Addr)

	assert.Equal(t, election.RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      3,
	}, cfg.RetryPolicy())

	opts := cfg.ElectionOptions()
	assert.Equal(t, "/services/scheduler/election", opts.Root)
	assert.Equal(t, "guid-", opts.Prefix)
	require.NotNil(t, opts.Retry)
	assert.Equal(t, uint64(3), opts.Retry.MaxRetries)

	assert.Len(t, cfg.ACL(), 1)
}

func TestLoadUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
servers = ["zk1:2181"]
sesion_timeout = "10s"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "sesion_timeout")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no servers":             func(c *Config) { c.Servers = nil },
		"empty server":           func(c *Config) { c.Servers = []string{" "} },
		"short session timeout":  func(c *Config) { c.SessionTimeout = 10 * time.Millisecond },
		"relative root":          func(c *Config) { c.Root = "election" },
		"empty prefix":           func(c *Config) { c.Prefix = "" },
		"prefix with slash":      func(c *Config) { c.Prefix = "a/b-" },
		"unknown log level":      func(c *Config) { c.Log.Level = "loud" },
		"unknown log format":     func(c *Config) { c.Log.Format = "xml" },
		"zero initial interval":  func(c *Config) { c.Retry.InitialInterval = 0 },
		"inverted retry backoff": func(c *Config) { c.Retry.MaxInterval = time.Millisecond },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "unexpected error: %v", err)
		})
	}
}
