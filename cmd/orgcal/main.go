package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
)

var version = "0.1.0-dev"

func main() {
	// Load .env first, but don't error if it doesn't exist.
	if err := config.LoadDotEnv(); err != nil {
		appLog.Error("failed to load .env", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		appLog.Error("orgcal failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "orgcal",
		Usage:   "Write macOS calendar events to an org-mode file.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "path to the YAML config file",
				EnvVars: []string{"ORGCAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "calendar source: applescript, store, caldav or ics (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config)",
			},
		},
		Commands: []*cli.Command{
			writeCommand(),
			calendarsCommand(),
			watchCommand(),
			initConfigCommand(),
		},
		DefaultCommand: "write",
	}
}

// loadConfig applies file, environment and global flag settings, in that
// order, and configures logging.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv(nil)

	if v := c.String("provider"); v != "" {
		cfg.Provider = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	cfg.Normalize()
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appLog.Debug("effective config",
		"config_path", path,
		"output", cfg.Output,
		"provider", cfg.Provider,
		"calendars", len(cfg.Calendars),
		"start_offset_days", cfg.StartOffsetDays,
		"end_offset_days", cfg.EndOffsetDays,
		"missing_calendar", cfg.MissingCalendar,
	)
	return cfg, nil
}
