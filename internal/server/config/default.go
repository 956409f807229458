package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr         = "127.0.0.1:8000"
	DefaultRedisReadTimeout  = 30 * time.Second
	DefaultRedisWriteTimeout = 30 * time.Second

	DefaultHTTPAddr = "127.0.0.1:8080"

	DefaultShards        = 16
	DefaultSweepInterval = time.Duration(0)

	DefaultPubSubWriteTimeout = 5 * time.Second
	DefaultPubSubSendBuffer   = 64

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:         DefaultRedisAddr,
				ReadTimeout:  DefaultRedisReadTimeout,
				WriteTimeout: DefaultRedisWriteTimeout,
			},
			HTTP: HTTPConfig{
				Enabled: false,
				Addr:    DefaultHTTPAddr,
			},
		},
		Keyspace: KeyspaceSection{
			Shards:        DefaultShards,
			SweepInterval: DefaultSweepInterval,
		},
		PubSub: PubSubSection{
			WriteTimeout: DefaultPubSubWriteTimeout,
			SendBuffer:   DefaultPubSubSendBuffer,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
