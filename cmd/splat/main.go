// Package main implements the splat CLI tool.
//
// The splat tool runs the mutex correctness suite and prints each test's
// narration and outcome. It works by:
//
//  1. Building the harness configuration from defaults, an optional config
//     file, environment variables and flags
//  2. Registering the mutex subsystem against the selected mutex kind
//  3. Running the selected tests and reporting their status
//
// Usage:
//
//	splat list                       # List subsystems and tests
//	splat run                        # Run every test
//	splat run mutex race             # Run one test by name
//	splat run 0x0400 0x0402 --stats  # Run one test by id, print metrics
//	splat version                    # Show version information
//
// The exit status is 1 if any test failed or the selection matched nothing.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/kolkov/splat/internal/config"
	"github.com/kolkov/splat/internal/log"
	"github.com/kolkov/splat/splat"
)

func main() {
	// The race test sizes its pool from GOMAXPROCS; align it with the CPU
	// quota before anything runs.
	if undo, err := maxprocs.Set(maxprocs.Logger(log.DefaultLogger.Debugf)); err != nil {
		log.DefaultLogger.Warnf("[main] failed to set GOMAXPROCS: %v", err)
	} else {
		defer undo()
	}

	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		code := 1
		if ec, ok := err.(cli.ExitCoder); ok {
			code = ec.ExitCode()
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "splat: %s\n", msg)
		}
		os.Exit(code)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "splat"
	app.Version = splat.Version
	app.Usage = "mutex correctness harness"
	app.Writer = stdout
	app.ErrWriter = stderr
	// Errors are reported by main so tests can inspect them.
	app.ExitErrHandler = func(*cli.Context, error) {}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Load configuration from `FILE` (YAML or JSON)",
			EnvVar: "SPLAT_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level, l",
			Usage:  "log level, fatal|error|warn|info|debug|trace",
			EnvVar: "SPLAT_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:  "log-output",
			Usage: "log to `FILE`, stdout or stderr",
		},
		cli.StringFlag{
			Name:   "mutex, m",
			Usage:  "mutex kind under test, default|chan",
			EnvVar: "SPLAT_MUTEX",
		},
		cli.IntFlag{
			Name:  "race-count",
			Usage: "number of racing work items",
		},
		cli.DurationFlag{
			Name:  "race-sleep",
			Usage: "sleep inside the race critical section",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "race pool workers, 0 for GOMAXPROCS",
		},
		cli.IntFlag{
			Name:  "queue-depth",
			Usage: "race pool queue depth, 0 for the race count",
		},
	}

	app.Commands = []cli.Command{
		cmdList,
		cmdRun,
		cmdVersion,
	}

	app.Action = func(c *cli.Context) error {
		return cli.ShowAppHelp(c)
	}
	return app
}

// loadConfig builds the configuration: defaults, then the config file, then
// global flags and their environment variables. It also sets up the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if c.GlobalIsSet("log-level") {
		cfg.Log.Level = c.GlobalString("log-level")
	}
	if c.GlobalIsSet("log-output") {
		cfg.Log.Output = c.GlobalString("log-output")
	}
	if c.GlobalIsSet("mutex") {
		cfg.Mutex.Kind = c.GlobalString("mutex")
	}
	if c.GlobalIsSet("race-count") {
		cfg.Race.Count = c.GlobalInt("race-count")
	}
	if c.GlobalIsSet("race-sleep") {
		cfg.Race.Sleep = c.GlobalDuration("race-sleep").String()
	}
	if c.GlobalIsSet("workers") {
		cfg.Race.Workers = c.GlobalInt("workers")
	}
	if c.GlobalIsSet("queue-depth") {
		cfg.Race.QueueDepth = c.GlobalInt("queue-depth")
	}

	if err := cfg.Validate(splat.SemVer()); err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if err := log.InitDefaultLogger(cfg.Log.Output, level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newHarness builds a harness writing narration to the app's writer.
func newHarness(c *cli.Context) (*splat.Harness, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return splat.New(splat.WithConfig(cfg), splat.WithOutput(c.App.Writer))
}
