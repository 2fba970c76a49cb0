package main

import (
	"time"

	"github.com/nickbruun/zkelection/config"
	"github.com/nickbruun/zkelection/logging"
	"github.com/spf13/cobra"
)

// Command line state shared by the commands.
type runtimeState struct {
	configPath     string
	servers        []string
	sessionTimeout time.Duration
	root           string
	prefix         string
	logLevel       string
	logFormat      string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	rt := &runtimeState{}

	root := newBaseCommand(rt)
	root.AddCommand(
		newRunCommand(rt),
		newCandidatesCommand(rt),
	)

	return root
}

// Root command without subcommands.
func newBaseCommand(rt *runtimeState) *cobra.Command {
	root := &cobra.Command{
		Use:          "zkelect",
		Short:        "ZooKeeper leader election",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.configPath, "config", "", "Path to TOML configuration file")
	flags.StringSliceVar(&rt.servers, "servers", nil, "ZooKeeper servers as host:port")
	flags.DurationVar(&rt.sessionTimeout, "session-timeout", config.DefaultSessionTimeout, "ZooKeeper session timeout")
	flags.StringVar(&rt.root, "root", "", "Election root path")
	flags.StringVar(&rt.prefix, "prefix", "", "Candidacy node name prefix")
	flags.StringVar(&rt.logLevel, "log-level", "", "Log level")
	flags.StringVar(&rt.logFormat, "log-format", "", "Log format: text or json")

	return root
}

// Load the configuration, apply flag overrides, and configure logging.
func (rt *runtimeState) load(cmd *cobra.Command) error {
	cfg := config.Default()

	if rt.configPath != "" {
		var err error
		if cfg, err = config.Load(rt.configPath); err != nil {
			return err
		}
	}

	rt.apply(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	rt.cfg = cfg
	return nil
}

// Apply the flags set on the command line to a configuration.
func (rt *runtimeState) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("servers") {
		cfg.Servers = rt.servers
	}
	if flags.Changed("session-timeout") {
		cfg.SessionTimeout = rt.sessionTimeout
	}
	if flags.Changed("root") {
		cfg.Root = rt.root
	}
	if flags.Changed("prefix") {
		cfg.Prefix = rt.prefix
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = rt.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = rt.logFormat
	}
}
