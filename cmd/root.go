// Package cmd wires the command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-importer/internal/config"
	"github.com/insightdelivered/statement-importer/internal/logger"
	"github.com/insightdelivered/statement-importer/internal/security"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	if err := NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:   "statement-importer",
		Short: "Extract transactions from broker and bank statements",
		Long: `statement-importer reads broker account statements, transaction overviews
and bank statements in eight languages and turns them into securities,
account transactions and buy/sell entries.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newExtractCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// openCatalog connects the configured security catalog. The returned func
// releases its connections.
func (a *app) openCatalog(ctx context.Context) (security.Catalog, func(), error) {
	switch a.cfg.CatalogBackend {
	case config.BackendRedis:
		client, err := security.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.log.Info().Msg("connected to redis")
		return security.NewRedisCatalog(client), func() { client.Close() }, nil

	case config.BackendPostgres:
		if err := security.RunMigrations(a.cfg.DatabaseURL, a.log); err != nil {
			return nil, nil, err
		}
		pool, err := security.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DatabaseMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.log.Info().Msg("connected to postgres")
		return security.NewPostgresCatalog(pool, security.NewRetrier(a.log)), pool.Close, nil
	}
	return security.NewMemoryCatalog(), func() {}, nil
}
