// Package config provides the pulsekv-cli configuration file.
//
// The file lives at ~/.pulsekv/cli.yaml unless --config or
// PULSEKV_CLI_CONFIG points elsewhere. It supplies defaults for the global
// flags and a table of named connections:
//
//	server: 127.0.0.1:8000
//	admin: 127.0.0.1:8080
//	output: raw
//	timeout: 5s
//	connections:
//	  staging: 10.0.0.7:8000
//
// Flags given on the command line always win over the file.
package config
