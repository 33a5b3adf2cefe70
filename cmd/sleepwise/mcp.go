package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"sleepwise/internal/auth"
	"sleepwise/internal/logger"
	"sleepwise/internal/mcp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mcpToken string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the profile and insight tools over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout so an assistant
can read the profile, submit a night of metrics and page through insights
on behalf of one user.

The user is identified once at startup from --token (or SLEEPWISE_TOKEN),
verified the same way as the Authorization header of the HTTP API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout 留给协议，日志只写 stderr
		log, err := logger.NewStderrLogger(cfg.Log.Level, "sleepwise-mcp")
		if err != nil {
			return err
		}
		defer log.Sync()

		token := mcpToken
		if token == "" {
			token = os.Getenv("SLEEPWISE_TOKEN")
		}
		if token == "" {
			return errors.New("a user token is required (--token or SLEEPWISE_TOKEN)")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		identity, err := auth.Authenticate(ctx, a.verifier, "Bearer "+token)
		if err != nil {
			log.Error("Token rejected", zap.Error(err))
			return err
		}

		server := mcp.NewServer(identity, a.profileService, a.insightService, version, log)
		if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpToken, "token", "", "access token of the user the tools act for")
	rootCmd.AddCommand(mcpCmd)
}
