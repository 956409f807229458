package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pulsekv/internal/cli/connection"
)

// PublishCommand returns the publish command.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Send a message to every subscriber of a channel",
		ArgsUsage: "CHANNEL MESSAGE",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			client := newClient(c)
			defer client.Close()

			n, err := client.Publish(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			return printResult(c, n)
		},
	}
}

// SubscribeCommand returns the subscribe command. It prints every message
// until interrupted or the server closes the connection.
func SubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Stream messages published to a channel",
		ArgsUsage: "CHANNEL",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "exit after this many messages (0 = unlimited)",
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			flags := ParseGlobalFlags(c)
			limit := c.Int("count")

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			var (
				received int
				printErr error
			)
			err := connection.Subscribe(ctx, flags.Server, c.Args().Get(0), func(m connection.Message) {
				if printErr != nil {
					return
				}
				if printErr = printResult(c, m); printErr != nil {
					cancel()
					return
				}
				received++
				if limit > 0 && received >= limit {
					cancel()
				}
			})
			if err != nil {
				return err
			}
			return printErr
		},
	}
}
