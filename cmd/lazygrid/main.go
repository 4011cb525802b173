package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/config"
	"github.com/rebeliceyang/lazygrid/internal/logger"
)

type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:           "lazygrid",
		Short:         "Query paged tabular data with filters, sorting and search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file (default searches the user config dir, . and ./config)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		NewQueryCommand(opts),
		NewColumnsCommand(opts),
		NewTablesCommand(opts),
		NewURLCommand(opts),
		NewViewCommand(opts),
		NewHistoryCommand(opts),
		NewAuthCommand(opts),
	)
	return cmd
}

// loadConfig reads the config and sets up logging
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}
