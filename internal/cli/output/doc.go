// Package output renders command results for pulsekv-cli.
//
// The raw format mirrors what redis-cli prints for each reply type. The
// table format renders maps and structs as FIELD/VALUE rows. json and yaml
// are meant for scripting.
package output
