// Package commands implements the pictagctl subcommands. Every command runs the
// services in-process against the configured store.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/app"
	"github.com/kailas-cloud/pictag/internal/config"
	logpkg "github.com/kailas-cloud/pictag/internal/logger"
)

type rootOptions struct {
	configPath string
	env        string
	logLevel   string
}

// NewRootCommand builds the pictagctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "pictagctl",
		Short:        "Manage and search tagged images",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (default: config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Environment name")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newSearchCommand(opts),
		newImagesCommand(opts),
		newTagCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath) //nolint:wrapcheck // already descriptive
	}
	return config.Load(o.env) //nolint:wrapcheck // already descriptive
}

// open wires the application; the caller must invoke the returned cleanup.
func (o *rootOptions) open(ctx context.Context) (*app.App, *config.Config, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logpkg.NewLogger(o.env, o.logLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}
	a, err := app.New(ctx, &cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("initialize: %w", err)
	}
	cleanup := func() {
		a.Close()
		_ = logger.Sync()
	}
	logger.Debug("pictagctl ready", zap.String("db_driver", cfg.Database.Driver))
	return a, &cfg, cleanup, nil
}
