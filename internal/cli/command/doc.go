// Package command defines the pulsekv-cli commands on urfave/cli/v2.
//
//   - root.go: the application, global flags, config file defaults and
//     result printing
//   - keyspace.go: get, set, del, expire
//   - pubsub.go: publish, subscribe
//   - system.go: ping, health, version
//   - config.go: config show, config set-connection
//   - repl.go: interactive mode
package command
