package main

import (
	"context"

	"sleepwise/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Persist scored insights left in the journal by failed writes",
	Long: `Walk the Redis journal and save every insight that was scored by the
prediction service but never reached the store. Entries that were only
staged (no score yet) are reported and left alone.

Requires redis.enabled and journal.enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.NewStderrLogger(cfg.Log.Level, "sleepwise-replay")
		if err != nil {
			return err
		}
		defer log.Sync()

		if !cfg.Journal.Enabled {
			color.Yellow("! journal is disabled, nothing to replay")
			return nil
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.insightService.Replay(ctx)
		if err != nil {
			log.Error("Replay failed", zap.Error(err))
			return err
		}

		color.Green("✓ replayed %d", res.Replayed)
		color.Cyan("  already stored %d", res.Existing)
		if res.Staged > 0 {
			color.Yellow("! staged without score %d", res.Staged)
		}
		if res.Failed > 0 {
			color.Red("✗ failed %d", res.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
