// Package main provides the entry point for pulsekv-cli.
//
// Usage:
//
//	pulsekv-cli [global flags] command [args]
//	pulsekv-cli set greeting hello
//	pulsekv-cli -o json get greeting
//	pulsekv-cli subscribe news --count 10
//	pulsekv-cli repl
//
// The CLI supports both single-command mode and interactive REPL mode.
package main
