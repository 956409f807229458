// Package connection provides the clients used by pulsekv-cli.
//
//   - client.go: request/reply commands over the wire protocol (go-redis)
//   - subscriber.go: a dedicated connection that streams push lines
//   - admin.go: the admin HTTP API
//   - manager.go: the current connection of an interactive session
package connection
