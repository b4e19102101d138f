package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/spf13/cobra"
)

func runCmd(load configLoader) *cobra.Command {
	var (
		contextJSON string
		asJSON      bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   `run "<task description>"`,
		Short: "Run a single task and print the synthesized result",
		Long: `Run plans and executes one task in-process, then prints the final output
and the result of every step. Interrupting the command cancels the task.

Task context keys understood by the workers include query, research_type,
content_type, style, length, content, validation_type and strict_mode.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := domain.Task{Description: strings.Join(args, " ")}
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &task.Context); err != nil {
					return fmt.Errorf("invalid --context: %w", err)
				}
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := buildApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.coordinator.Process(ctx, task)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&contextJSON, "context", "", `Task context as a JSON object, e.g. '{"research_type":"factual"}'`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Cancel the task after this long (0 = no limit)")

	return cmd
}
