package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func healthCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every worker and run the system checks once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Retry.HealthTimeout+5*time.Second)
			defer cancel()

			a, err := buildApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			report := a.coordinator.HealthCheckAll(ctx)
			printHealth(cmd.OutOrStdout(), report)
			if !report.SystemHealthy {
				return fmt.Errorf("system is unhealthy")
			}
			return nil
		},
	}
}
