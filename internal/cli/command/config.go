package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/pulsekv/internal/cli/config"
)

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or edit the CLI config file",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					flags := ParseGlobalFlags(c)
					return printResult(c, map[string]any{
						"file":        c.String("config"),
						"server":      flags.Server,
						"admin":       flags.Admin,
						"output":      string(flags.Output),
						"timeout":     flags.Timeout.String(),
						"connections": strings.Join(loadedConfig(c).ConnectionNames(), ","),
					})
				},
			},
			{
				Name:      "set-connection",
				Usage:     "Save a named connection",
				ArgsUsage: "NAME ADDR",
				Action: func(c *cli.Context) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					path := c.String("config")
					cfg, err := cliconfig.Load(path)
					if err != nil {
						return err
					}
					cfg.Connections[c.Args().Get(0)] = c.Args().Get(1)
					if err := cliconfig.Save(cfg, path); err != nil {
						return fmt.Errorf("save %s: %w", path, err)
					}
					return printResult(c, "OK")
				},
			},
		},
	}
}
