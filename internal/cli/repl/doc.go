// Package repl provides the interactive mode of pulsekv-cli.
//
// Each input line is split shell-style (quotes group words) and handed to
// an Executor. History is kept in memory and persisted on exit.
package repl
