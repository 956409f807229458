package config

import "time"

// ServerConfig is the root configuration for pulsekv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Keyspace KeyspaceSection `koanf:"keyspace"`
	PubSub   PubSubSection   `koanf:"pubsub"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures network endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the RESP protocol listener.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout closes silent connections; 0 keeps them open.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	// RateLimit is commands per second per client IP; 0 disables it.
	RateLimit int `koanf:"rate_limit"`
	// MaxConns caps concurrent connections; 0 means unlimited.
	MaxConns int `koanf:"max_conns"`
}

// HTTPConfig configures the admin HTTP server (health, metrics and
// WebSocket subscriptions).
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// KeyspaceSection configures the in-memory keyspace.
type KeyspaceSection struct {
	// Shards is the number of lock shards; must be a power of two.
	Shards int `koanf:"shards"`
	// SweepInterval runs the background sweeper; 0 leaves expiry lazy only.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// PubSubSection configures message delivery.
type PubSubSection struct {
	// WriteTimeout bounds writing one message to one subscriber. A
	// subscriber that misses it is disconnected. Must be positive.
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// SendBuffer is how many messages may wait for one subscriber before
	// further messages to it are dropped.
	SendBuffer int `koanf:"send_buffer"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
