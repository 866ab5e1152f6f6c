package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Viper-Industries/earnedshine/internal/config"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete past appointments and release their slots once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.SweepTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.SweepTimeout)
				defer cancel()
			}

			a, err := newApp(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.bookings.SweepPastAppointments(ctx)
			if err != nil {
				log.Error("sweep failed", slog.Int("completed", n), slog.Any("err", err))
				return err
			}
			log.Info("sweep finished", slog.Int("completed", n))
			fmt.Fprintf(cmd.OutOrStdout(), "completed %d past appointments\n", n)
			return nil
		},
	}
}
