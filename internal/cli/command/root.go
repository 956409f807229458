package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/pulsekv/internal/cli/config"
	"github.com/yndnr/pulsekv/internal/cli/connection"
	"github.com/yndnr/pulsekv/internal/cli/output"
	"github.com/yndnr/pulsekv/internal/infra/buildinfo"
)

// Default addresses match the server defaults.
const (
	DefaultServer = "127.0.0.1:8000"
	DefaultAdmin  = "127.0.0.1:8080"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pulsekv-cli",
		Usage:   "pulsekv command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ExpireCommand(),
			PublishCommand(),
			SubscribeCommand(),
			PingCommand(),
			HealthCommand(),
			VersionCommand(),
			ConfigCommand(),
			REPLCommand(),
		},
		Before: applyConfig,
	}
}

const metadataConfig = "cli-config"

// applyConfig loads the CLI config file and uses it for every global flag
// the command line left unset. Saved connection names are resolved in
// --server.
func applyConfig(c *cli.Context) error {
	cfg, err := cliconfig.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metadataConfig] = cfg

	defaults := map[string]string{
		"server": cfg.Server,
		"admin":  cfg.Admin,
		"output": cfg.Output,
	}
	if cfg.Timeout > 0 {
		defaults["timeout"] = cfg.Timeout.String()
	}
	for name, value := range defaults {
		if value == "" || c.IsSet(name) {
			continue
		}
		if err := c.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	if err := c.Set("server", cfg.Resolve(c.String("server"))); err != nil {
		return err
	}

	_, err = output.ParseFormat(c.String("output"))
	return err
}

// loadedConfig returns the config applied by applyConfig.
func loadedConfig(c *cli.Context) *cliconfig.CLIConfig {
	if cfg, ok := c.App.Metadata[metadataConfig].(*cliconfig.CLIConfig); ok {
		return cfg
	}
	return &cliconfig.CLIConfig{Connections: make(map[string]string)}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"PULSEKV_CLI_CONFIG"},
			Value:   cliconfig.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "pulsekv server address or saved connection name",
			EnvVars: []string{"PULSEKV_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "admin",
			Aliases: []string{"a"},
			Usage:   "admin HTTP address, used by health",
			EnvVars: []string{"PULSEKV_ADMIN"},
			Value:   DefaultAdmin,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: raw, table, json, yaml",
			Value:   string(output.FormatRaw),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Admin   string
	Output  output.Format
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		format = output.FormatRaw
	}
	return &GlobalFlags{
		Server:  c.String("server"),
		Admin:   c.String("admin"),
		Output:  format,
		Timeout: c.Duration("timeout"),
	}
}

// newClient returns a client for the --server address. Callers close it.
func newClient(c *cli.Context) *connection.Client {
	flags := ParseGlobalFlags(c)
	return connection.NewClient(flags.Server, flags.Timeout)
}

// printResult writes data to the app writer in the selected format.
func printResult(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", c.Command.Name, n, c.NArg())
	}
	return nil
}
