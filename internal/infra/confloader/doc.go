// Package confloader loads configuration with koanf.
//
// Sources are merged in order, later ones winning:
//
//  1. Defaults (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (PULSEKV_ prefix)
//  4. Command-line flags (via LoadMap)
//
// Environment variable names use a double underscore between sections so
// that single underscores can remain inside key names:
// PULSEKV_SERVER__REDIS__READ_TIMEOUT=10s sets server.redis.read_timeout.
package confloader
