package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/pulsekv/internal/cli/config"
	"github.com/yndnr/pulsekv/internal/cli/connection"
	"github.com/yndnr/pulsekv/internal/cli/output"
	"github.com/yndnr/pulsekv/internal/cli/repl"
)

// replCommands are offered by "help" inside the REPL.
var replCommands = []string{"get", "set", "del", "expire", "ttl", "publish", "ping", "connect"}

// REPLCommand returns the interactive mode command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Interactive mode: send commands line by line",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "do not read or write the history file",
			},
		},
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)

			mgr := connection.NewManager(flags.Timeout)
			defer mgr.Disconnect()
			if err := mgr.Connect(c.Context, flags.Server); err != nil {
				return err
			}

			historyFile := repl.DefaultHistoryFile()
			if c.Bool("no-history") {
				historyFile = ""
			}

			sess := &replSession{mgr: mgr, format: flags.Output, c: c, cfg: loadedConfig(c)}
			r := repl.New(sess.exec,
				repl.WithIO(c.App.Reader, writer(c)),
				repl.WithHistory(repl.NewHistory(historyFile)),
				repl.WithCompleter(repl.NewCompleter(replCommands...)),
			)
			return r.Run(c.Context)
		},
	}
}

type replSession struct {
	mgr    *connection.Manager
	format output.Format
	c      *cli.Context
	cfg    *cliconfig.CLIConfig
}

// exec runs one REPL line. "connect ADDR" switches servers (ADDR may be a
// saved connection name); everything else is sent to the current server
// verbatim.
func (s *replSession) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "connect":
		if len(args) != 2 {
			return errors.New("usage: connect ADDR")
		}
		if err := s.mgr.Connect(ctx, s.cfg.Resolve(args[1])); err != nil {
			return err
		}
		return s.print("OK")
	case "subscribe":
		return errors.New("subscribe is not available in interactive mode; run pulsekv-cli subscribe CHANNEL")
	}

	client := s.mgr.Current()
	if client == nil {
		return fmt.Errorf("not connected")
	}
	v, err := client.Do(ctx, args...)
	if err != nil {
		return err
	}
	return s.print(v)
}

func (s *replSession) print(v any) error {
	return output.NewFormatter(s.format).Format(writer(s.c), v)
}
