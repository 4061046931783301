package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/kolkov/splat/splat"
)

var cmdVersion = cli.Command{
	Name:  "version",
	Usage: "show version information",
	Action: func(c *cli.Context) error {
		info := splat.GetInfo()
		fmt.Fprintf(c.App.Writer, "splat version %s\n", info.Version)
		fmt.Fprintf(c.App.Writer, "go: %s\n", info.GoVersion)
		fmt.Fprintf(c.App.Writer, "subsystem: %s %s\n", info.Subsystem, info.Subsystem.Desc)
		fmt.Fprintf(c.App.Writer, "mutex kinds: %s\n", strings.Join(info.MutexKinds, ", "))
		return nil
	},
}
