package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeLog()

			cluster, err := database.Connect(cmd.Context(), clusterConfig(cfg), retryPolicy(cfg), migrateFunc(cfg), log)
			if err != nil {
				return err
			}
			log.Info("schema ready")
			return cluster.Close()
		},
	}
}

func retryPolicy(cfg config.Config) database.RetryPolicy {
	return database.RetryPolicy{Attempts: cfg.DB.StartupAttempts, Backoff: cfg.DB.StartupBackoff}
}

// migrateFunc creates the schema and seeds the manager account with the
// configured password.
func migrateFunc(cfg config.Config) database.PrepareFunc {
	return func(ctx context.Context, primary *sql.DB) error {
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return database.Migrate(ctx, primary, database.Seed{AdminPasswordHash: hash})
	}
}
