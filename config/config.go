// Package config holds the configuration of an election participant.
package config

import (
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/nickbruun/zkelection/election"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
	"github.com/sirupsen/logrus"
)

const (
	// Default ZooKeeper server.
	DefaultServer = "localhost:2181"

	// Default session timeout.
	DefaultSessionTimeout = 3 * time.Second
)

// Invalid configuration.
var ErrInvalid = errors.New("invalid configuration")

// Log configuration.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Retry configuration.
type RetryConfig struct {
	InitialInterval time.Duration `toml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
	MaxRetries      uint64        `toml:"max_retries"`
}

// Status endpoint configuration.
type StatusConfig struct {
	// Listen address. The endpoint is disabled if empty.
	Addr string `toml:"addr"`
}

// Configuration.
type Config struct {
	// ZooKeeper servers as host:port.
	Servers []string `toml:"servers"`

	// ZooKeeper session timeout.
	SessionTimeout time.Duration `toml:"session_timeout"`

	// Election root path.
	Root string `toml:"root"`

	// Candidacy node name prefix.
	Prefix string `toml:"prefix"`

	// Identity of the participant, reported by the status endpoint.
	InstanceID string `toml:"instance_id"`

	// Give up the session once disconnected for longer than it can be
	// assumed to be alive.
	PresumeSessionLoss bool `toml:"presume_session_loss"`

	Log    LogConfig    `toml:"log"`
	Retry  RetryConfig  `toml:"retry"`
	Status StatusConfig `toml:"status"`
}

// Default configuration.
func Default() *Config {
	retry := election.DefaultRetryPolicy()

	return &Config{
		Servers:        []string{DefaultServer},
		SessionTimeout: DefaultSessionTimeout,
		Root:           election.DefaultRoot,
		Prefix:         election.DefaultPrefix,
		InstanceID:     uuid.NewString(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Retry: RetryConfig{
			InitialInterval: retry.InitialInterval,
			MaxInterval:     retry.MaxInterval,
			MaxRetries:      retry.MaxRetries,
		},
	}
}

// Load configuration from a TOML file.
//
// Values missing from the file keep their defaults. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "loading configuration %s", path)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)

		return nil, errors.Wrapf(ErrInvalid, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Validate the configuration.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return errors.Wrap(ErrInvalid, "no servers")
	}
	for _, s := range c.Servers {
		if strings.TrimSpace(s) == "" {
			return errors.Wrap(ErrInvalid, "empty server address")
		}
	}

	if c.SessionTimeout < time.Second {
		return errors.Wrapf(ErrInvalid, "session timeout %s is below 1s", c.SessionTimeout)
	}

	if !strings.HasPrefix(c.Root, "/") {
		return errors.Wrapf(ErrInvalid, "election root %q is not absolute", c.Root)
	}
	if c.Prefix == "" || strings.Contains(c.Prefix, "/") {
		return errors.Wrapf(ErrInvalid, "invalid candidacy prefix %q", c.Prefix)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalid, "unknown log format %q", c.Log.Format)
	}

	if c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval {
		return errors.Wrapf(ErrInvalid, "invalid retry intervals %s and %s", c.Retry.InitialInterval, c.Retry.MaxInterval)
	}

	return nil
}

// Retry policy.
func (c *Config) RetryPolicy() election.RetryPolicy {
	return election.RetryPolicy{
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		MaxRetries:      c.Retry.MaxRetries,
	}
}

// Election options.
func (c *Config) ElectionOptions() election.Options {
	retry := c.RetryPolicy()

	return election.Options{
		Root:   c.Root,
		Prefix: c.Prefix,
		Retry:  &retry,
	}
}

// ACL of the nodes created by the participant.
func (c *Config) ACL() []zk.ACL {
	return zk.WorldACL(zk.PermAll)
}
