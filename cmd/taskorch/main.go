// Command taskorch runs the task orchestrator as a service, runs a single
// task from the command line, or reports system health.
package main

import (
	"fmt"
	"os"

	"github.com/aescanero/taskorch/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "taskorch",
		Short: "Multi-worker task orchestrator",
		Long: `taskorch plans a task with the reasoning collaborator, dispatches the
plan's steps to the research, content and validation workers, and
synthesizes their outputs into a single answer.

Configuration is read from the YAML file named by --config or
TASKORCH_CONFIG_FILE, then from the environment.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	load := func() (*config.Config, error) {
		if configPath == "" {
			configPath = os.Getenv(config.FileEnvVar)
		}
		return config.LoadFrom(configPath)
	}

	cmd.AddCommand(
		serveCmd(load),
		runCmd(load),
		healthCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "taskorch version %s (build: %s)\n", Version, BuildTime)
			},
		},
	)

	return cmd
}

type configLoader func() (*config.Config, error)

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
