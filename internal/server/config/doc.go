// Package config defines the pulsekv-server configuration.
//
//   - spec.go: ServerConfig and its sections
//   - default.go: default values
//   - verify.go: validation run after loading
//
// Values are loaded by internal/infra/confloader from a YAML file, the
// environment and command-line flags.
package config
