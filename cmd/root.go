package cmd

import (
	"github.com/spaghettifunk/character-studio/engine/config"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "studio",
		Short:         "Compose avatars from a trait catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			core.SetLogOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides the configuration)")

	root.AddCommand(newComposeCmd(opts))
	root.AddCommand(newInspectCmd())
	return root
}

// loadConfig applies the command line overrides on top of file and environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// Execute runs the studio command line.
func Execute() error {
	return newRootCmd().Execute()
}
