package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "assetxfer",
		Usage: "Create and transfer custodial assets and wait for ledger confirmation",
		Description: `A command-line tool for custodial asset transfers.

Accounts are custody (ORE ID) account names; their keys never leave the
custody service. Every submitted transaction is polled until it is confirmed,
rejected by the transaction pool, or the round budget runs out.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			transferCommand(),
			confirmCommand(),
			statusCommand(),
			{
				Name:  "workflow",
				Usage: "Durable transfers via Temporal",
				Subcommands: []*cli.Command{
					workflowStartCommand(),
				},
			},
			{
				Name:  "events",
				Usage: "Confirmation events on NATS",
				Subcommands: []*cli.Command{
					eventsTailCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "Filter JSON output through a jq expression (implies --json)",
			},
		},
	}
}

// setupLogger creates a structured logger with the given log level.
// Logs go to stderr so stdout stays parseable.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func loggerFromContext(c *cli.Context) *slog.Logger {
	return setupLogger(c.String("log-level"))
}
