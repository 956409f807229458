package command

import (
	"github.com/urfave/cli/v2"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the value of a key, or (nil)",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			client := newClient(c)
			defer client.Close()

			v, found, err := client.Get(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			if !found {
				return printResult(c, nil)
			}
			return printResult(c, v)
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value, clearing any expiry",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			client := newClient(c)
			defer client.Close()

			if err := client.Set(c.Context, c.Args().Get(0), c.Args().Get(1)); err != nil {
				return err
			}
			return printResult(c, "OK")
		},
	}
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete a key and print how many entries were removed",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			client := newClient(c)
			defer client.Close()

			n, err := client.Del(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			return printResult(c, n)
		},
	}
}

// ExpireCommand returns the expire command.
func ExpireCommand() *cli.Command {
	return &cli.Command{
		Name:      "expire",
		Usage:     "Expire a key after SECONDS; prints (nil) if the key does not exist",
		ArgsUsage: "KEY SECONDS",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			client := newClient(c)
			defer client.Close()

			ok, err := client.Expire(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			if !ok {
				return printResult(c, nil)
			}
			return printResult(c, int64(1))
		},
	}
}
