package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli"
)

var cmdList = cli.Command{
	Name:  "list",
	Usage: "list subsystems and their tests",
	Action: func(c *cli.Context) error {
		h, err := newHarness(c)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer h.Close()

		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		for _, sub := range h.Subsystems() {
			fmt.Fprintf(tw, "%s\t%s\n", sub.Desc, sub.Desc.Desc)
			for _, t := range sub.Tests {
				fmt.Fprintf(tw, "  %s\t%s\n", t, t.Desc)
			}
		}
		return tw.Flush()
	},
}
