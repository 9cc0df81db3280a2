package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-importer/internal/api"
	"github.com/insightdelivered/statement-importer/internal/extract"
	"github.com/insightdelivered/statement-importer/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction API over HTTP",
		Long: `Serve POST /api/extract, GET /api/health and GET /metrics on HTTP_PORT.
Securities are kept in the catalog selected by CATALOG_BACKEND.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()

	opts, err := a.extractOptions("")
	if err != nil {
		return err
	}
	catalog, closeCatalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ex := extract.New(catalog, m, a.log, opts)
	h := api.NewHandler(ex, m, a.log, version)
	server := api.NewApp(api.Config{
		BodyLimit:    a.cfg.HTTPBodyLimit,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
	}, h, reg)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.HTTPPort).Str("catalog", a.cfg.CatalogBackend).Msg("starting server")
		errCh <- server.Listen(fmt.Sprintf(":%s", a.cfg.HTTPPort))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	a.log.Info().Msg("shutting down server...")
	if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info().Msg("server stopped")
	return nil
}
