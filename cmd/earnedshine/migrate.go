package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Viper-Industries/earnedshine/internal/config"
	"github.com/Viper-Industries/earnedshine/internal/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)
			if !cfg.NeedsDatabase() {
				return errors.New("no store is configured for postgres; nothing to migrate")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = postgres.Close(db) }()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("database migrations applied")
			return nil
		},
	}
}
