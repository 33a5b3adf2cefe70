package main

import (
	"context"
	"fmt"
	"strconv"

	"sleepwise/internal/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema (users, insights)",
	Long: `Apply or roll back the embedded schema migrations.

The DB_* settings are used for both the postgres backend and the database
behind a Supabase project.

  $ sleepwise migrate up
  $ sleepwise migrate down 1
  $ sleepwise migrate version`,
}

func withMigrator(fn func(*database.Migrator) error) error {
	db, err := database.NewPostgresDB(context.Background(), &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	defer mg.Close()
	return fn(mg)
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Up(); err != nil {
				return err
			}
			v, _, err := mg.Version()
			if err != nil {
				return err
			}
			color.Green("✓ Schema at version %d", v)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Down(steps); err != nil {
				return err
			}
			color.Yellow("✗ Rolled back %d migration(s)", steps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *database.Migrator) error {
			v, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			if dirty {
				color.Red("Schema version %d (dirty)", v)
				return nil
			}
			fmt.Printf("Schema version %d\n", v)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
