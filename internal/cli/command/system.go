package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pulsekv/internal/cli/connection"
	"github.com/yndnr/pulsekv/internal/infra/buildinfo"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check the server answers",
		Action: func(c *cli.Context) error {
			client := newClient(c)
			defer client.Close()

			pong, err := client.Ping(c.Context)
			if err != nil {
				return err
			}
			return printResult(c, pong)
		},
	}
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Show server health from the admin HTTP API",
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)
			admin := connection.NewAdminClient(flags.Admin)

			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()

			result, err := admin.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check against %s: %w", admin.BaseURL(), err)
			}
			return printResult(c, result)
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show client build information",
		Action: func(c *cli.Context) error {
			return printResult(c, buildinfo.Get())
		},
	}
}
