package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
	"orgcal/internal/orgcal"
	"orgcal/internal/writer"
)

func newService(c *cli.Context) (*orgcal.Service, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	p, err := orgcal.NewProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	return orgcal.New(cfg, p), cfg, nil
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "calendar",
			Aliases: []string{"n"},
			Usage:   "calendar display name, repeatable (default: calendars from config)",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "first date: YYYY-MM-DD or a day offset like -7",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "last date: YYYY-MM-DD or a day offset like +30",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "org file to write (overrides config)",
		},
	}
}

// writeOptions maps range flags onto WriteOptions; unset flags stay nil so
// the service falls back to the config.
func writeOptions(c *cli.Context, svc *orgcal.Service, cfg *config.Config) (orgcal.WriteOptions, error) {
	var opts orgcal.WriteOptions
	opts.Calendars = c.StringSlice("calendar")

	if v := c.String("start"); v != "" {
		d, err := svc.Resolver().ParseDate(v)
		if err != nil {
			return opts, err
		}
		opts.Start = &d
	}
	if v := c.String("end"); v != "" {
		d, err := svc.Resolver().ParseDate(v)
		if err != nil {
			return opts, err
		}
		opts.End = &d
	}
	if v := c.String("output"); v != "" {
		cfg.Output = v
	}
	return opts, nil
}

func writeCommand() *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "Write calendar events to the org file once.",
		Flags: append(rangeFlags(),
			&cli.BoolFlag{Name: "dry-run", Usage: "print the document to stdout instead of writing it"},
		),
		Action: func(c *cli.Context) error {
			svc, cfg, err := newService(c)
			if err != nil {
				return err
			}
			opts, err := writeOptions(c, svc, cfg)
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				doc, _, err := svc.Render(c.Context, opts)
				if err != nil {
					return err
				}
				_, err = c.App.Writer.Write(writer.Content(doc))
				return err
			}

			_, err = svc.WriteCalendars(c.Context, opts)
			return err
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:      "calendars",
		Usage:     "Resolve calendar names and print their provider IDs.",
		ArgsUsage: "[NAME...]",
		Action: func(c *cli.Context) error {
			svc, cfg, err := newService(c)
			if err != nil {
				return err
			}
			names := c.Args().Slice()
			if len(names) == 0 {
				names = cfg.Calendars
			}

			cals, err := svc.ListCalendars(c.Context, names)
			if err != nil {
				return err
			}
			for _, cal := range cals {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", cal.ID, cal.Name)
			}
			if len(cals) == 0 {
				appLog.Warn("no matching calendars", "requested", len(names))
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Write now, then again on every tick of the refresh schedule.",
		Flags: append(rangeFlags(),
			&cli.StringFlag{Name: "refresh", Usage: "cron schedule (overrides config refresh)"},
		),
		Action: func(c *cli.Context) error {
			svc, cfg, err := newService(c)
			if err != nil {
				return err
			}
			if v := c.String("refresh"); v != "" {
				cfg.Refresh = v
			}
			schedule, err := cron.ParseStandard(cfg.Refresh)
			if err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
			}
			if err := svc.Connect(c.Context); err != nil {
				return err
			}

			job := &watchJob{
				ctx: c.Context,
				svc: svc,
				// Dates are re-resolved on every run so the window follows today.
				options: func() (orgcal.WriteOptions, error) { return writeOptions(c, svc, cfg) },
			}
			job.Run()

			sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			sched.Schedule(schedule, job)
			sched.Start()
			appLog.Info("watching calendars", "refresh", cfg.Refresh, "output", cfg.OutputPath())

			<-c.Context.Done()
			<-sched.Stop().Done()
			appLog.Info("orgcal watch exiting")
			return nil
		},
	}
}

// watchJob is one scheduled write. A failed run is logged and leaves the
// previous file in place; the next tick tries again.
type watchJob struct {
	ctx     context.Context
	svc     *orgcal.Service
	options func() (orgcal.WriteOptions, error)
}

func (j *watchJob) Run() {
	if err := j.runOnce(); err != nil {
		appLog.Error("scheduled write failed", err)
	}
}

func (j *watchJob) runOnce() error {
	opts, err := j.options()
	if err != nil {
		return fmt.Errorf("invalid range flags: %w", err)
	}
	_, err = j.svc.WriteCalendars(j.ctx, opts)
	return err
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "Write the default config file if it does not exist yet.",
		Action: func(c *cli.Context) error {
			path := config.ExpandPath(c.String("config"))
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s (provider %s, output %s)\n", path, cfg.Provider, cfg.Output)
			return nil
		},
	}
}
