package main

import (
	"context"
	"fmt"
	"time"

	"sleepwise/internal/config"
	"sleepwise/internal/database"
	"sleepwise/internal/prediction"
	"sleepwise/internal/supabase"

	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to every configured dependency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		failed := 0
		for _, c := range dependencyChecks(cfg) {
			if err := c.run(ctx); err != nil {
				failed++
				color.Red("✗ %-12s %v", c.name, err)
				continue
			}
			color.Green("✓ %-12s ok", c.name)
		}
		if failed > 0 {
			return fmt.Errorf("%d dependency check(s) failed", failed)
		}
		return nil
	},
}

type dependencyCheck struct {
	name string
	run  func(ctx context.Context) error
}

func dependencyChecks(cfg *config.Config) []dependencyCheck {
	log := zap.NewNop()
	var checks []dependencyCheck

	if needsSupabase(cfg) {
		checks = append(checks, dependencyCheck{"supabase", func(ctx context.Context) error {
			client, err := supabase.New(supabase.Config{
				URL:     cfg.Supabase.URL,
				APIKey:  cfg.Supabase.APIKey,
				Timeout: cfg.Supabase.Timeout,
			}, log)
			if err != nil {
				return err
			}
			return client.Health(ctx)
		}})
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		checks = append(checks, dependencyCheck{"postgres", func(ctx context.Context) error {
			db, err := database.NewPostgresDB(ctx, &cfg.Database)
			if err != nil {
				return err
			}
			return db.Close()
		}})
	case config.BackendMemory:
		color.Yellow("! store backend is memory, nothing to check")
	}

	checks = append(checks, dependencyCheck{"prediction", func(ctx context.Context) error {
		return prediction.NewClient(cfg.Prediction.BaseURL, cfg.Prediction.Timeout, cfg.Prediction.MinPredictions(), log).Health(ctx)
	}})

	if cfg.Redis.Enabled {
		checks = append(checks, dependencyCheck{"redis", func(ctx context.Context) error {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Second, "overall timeout for all checks")
	rootCmd.AddCommand(checkCmd)
}
