/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rollbackSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations for the postgres backend",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg); err != nil {
			return err
		}
		if err := db.Migrate(cfg.Database); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("database", cfg.Database.DBName))
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg); err != nil {
			return err
		}
		if err := db.Rollback(cfg.Database, rollbackSteps); err != nil {
			return err
		}
		log.Info("migrations rolled back", zap.Int("steps", rollbackSteps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVarP(&rollbackSteps, "steps", "n", 1, "number of migrations to roll back")
}

func requirePostgres(cfg config.Config) error {
	if cfg.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to DB_DRIVER=%s, got %q", config.DriverPostgres, cfg.Driver)
	}
	return nil
}
