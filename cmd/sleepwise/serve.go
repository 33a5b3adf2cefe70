package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	httpapi "sleepwise/internal/http"
	"sleepwise/internal/logger"
	"sleepwise/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sleepwise")
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			log.Error("Failed to initialise dependencies", zap.Error(err))
			return err
		}
		defer a.Close()

		router := httpapi.NewRouter(httpapi.RouterOptions{
			Verifier:           a.verifier,
			Metrics:            a.metrics,
			CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
			RateLimit:          cfg.RateLimit,
		}, log)
		router.RegisterUserRoutes(httpapi.NewUserHandler(a.profileService, cfg.HTTP.MaxBodyBytes, log))
		router.RegisterInsightRoutes(httpapi.NewInsightHandler(a.insightService, cfg.HTTP.MaxBodyBytes, log))

		srv := service.NewServer(cfg.HTTP.Addr, router, log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		var runErr error
		select {
		case sig := <-sigCh:
			log.Info("Shutdown signal received", zap.String("signal", sig.String()))
		case runErr = <-errCh:
			if runErr != nil {
				log.Error("HTTP server stopped", zap.Error(runErr))
			}
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Warn("Graceful shutdown incomplete", zap.Error(err))
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
