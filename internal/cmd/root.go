// Package cmd implements the arbiter command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigerco/arbiter/internal/config"
	"github.com/eigerco/arbiter/pkg/log"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	configPath string
	cfg        *config.Config
}

// NewRootCommand builds the full command tree. Each call returns an
// independent tree with its own configuration.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "arbiter",
		Short: "Conflict arbitration ledger",
		Long: `arbiter runs and talks to a conflict registry: an authority opens
conflicts about proposals, voters cast one ballot each, and the authority
resolves each conflict as valid, invalid or null.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (yaml, toml or json)")
	flags.String("addr", "", "server address used by client commands")
	flags.String("server-identity", "", "expected server identity; empty accepts any")
	flags.String("key", "", "path of the Ed25519 key file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")

	root.AddCommand(
		a.serveCommand(),
		a.keygenCommand(),
		a.identityCommand(),
	)
	root.AddCommand(a.clientCommands()...)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"addr":            "network.server_addr",
	"server-identity": "network.server_identity",
	"key":             "keys.path",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"listen":          "network.listen_addr",
	"storage":         "storage.path",
	"authority":       "authorities",
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	v, err := config.New(a.configPath)
	if err != nil {
		return err
	}
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := log.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	loggerType, err := log.ParseLoggerType(cfg.Log.Format)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: loggerType, Output: os.Stderr})
	return nil
}
