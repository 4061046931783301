package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/urfave/cli"

	"github.com/kolkov/splat/internal/log"
	"github.com/kolkov/splat/splat"
)

var cmdRun = cli.Command{
	Name:      "run",
	Usage:     "run tests",
	ArgsUsage: "[subsystem [test]]",
	Description: `Runs one test, every test of one subsystem, or every registered test.
   Subsystems and tests are selected by name or by id, decimal or 0x hex.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "stats",
			Usage: "print run metrics after the tests",
		},
	},
	Action: runAction,
}

// runAction implements 'splat run'.
//
// The exit status is 1 when a selector matches nothing, when any selected
// test fails, or when the run is interrupted.
func runAction(c *cli.Context) error {
	if c.NArg() > 2 {
		return cli.NewExitError("usage: splat run [subsystem [test]]", 1)
	}
	subsys, test := c.Args().Get(0), c.Args().Get(1)

	h, err := newHarness(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []splat.Result
	if test != "" {
		res, err := h.Run(ctx, subsys, test)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		results = append(results, res)
	} else {
		results, err = h.RunAll(ctx, subsys)
		if err != nil && len(results) == 0 {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	failed := report(c, results)

	if c.Bool("stats") {
		fmt.Fprintln(c.App.Writer)
		metrics.WriteOnce(h.Registry(), c.App.Writer)
	}

	switch {
	case err != nil:
		log.DefaultLogger.Warnf("[run] stopped after %d tests: %v", len(results), err)
		return cli.NewExitError(fmt.Sprintf("interrupted after %d tests: %v", len(results), err), 1)
	case failed > 0:
		return cli.NewExitError(fmt.Sprintf("%d of %d tests failed", failed, len(results)), 1)
	}
	return nil
}

// report prints one status line per result and returns the failure count.
func report(c *cli.Context, results []splat.Result) int {
	failed := 0
	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(c.App.Writer, "--- %s %s:%s (%d) %v\n",
			status, r.Subsystem.Name, r.Test.Name, r.Status, r.Duration)
		if r.Err != nil {
			fmt.Fprintf(c.App.Writer, "    %v\n", r.Err)
		}
	}
	return failed
}
