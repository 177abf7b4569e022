package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func backendsCmd() *cli.Command {
	return &cli.Command{
		Name:  "backends",
		Usage: "List the execution backends built into this binary",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reg := newRegistry(loaded)
			for i, name := range reg.Names() {
				suffix := ""
				if i == 0 {
					suffix = " (auto)"
				}
				fmt.Fprintf(cmd.Root().Writer, "%s%s\n", name, suffix)
			}
			return nil
		},
	}
}
