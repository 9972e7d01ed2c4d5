package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viktsys/tradepnl/api"
	"github.com/viktsys/tradepnl/database"
	"github.com/viktsys/tradepnl/ingest"
	"github.com/viktsys/tradepnl/metrics"
	"github.com/viktsys/tradepnl/store"
)

var serverCMD = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long:  `Start the HTTP API server to upload trade logs and run analyses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		logger.Info("Initializing database...")
		if err := database.InitDB(cfg.Database, logger); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close(database.DB)

		uploads, err := store.NewUploads(database.DB, cfg.Uploads.Dir, logger)
		if err != nil {
			return err
		}

		if cfg.Uploads.Retention > 0 {
			janitor := store.NewJanitor(uploads, cfg.Uploads.Retention, logger)
			if err := janitor.Register(cfg.Uploads.PruneSchedule); err != nil {
				return err
			}
			janitor.Start()
			defer janitor.Stop()
		}

		m := metrics.New()
		repo := store.NewRepository(database.DB)
		processor := ingest.NewProcessor(repo, logger, cfg.Analysis.FileWorkers).WithMetrics(m)

		handler := api.NewHandler(repo, uploads, processor, m, logger)
		handler.MaxUploadBytes = cfg.Server.MaxUploadBytes

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.SetupRoutes(handler),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting server", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
