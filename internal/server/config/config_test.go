package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Redis.Addr != DefaultRedisAddr {
		t.Errorf("Redis.Addr = %q, want %q", cfg.Server.Redis.Addr, DefaultRedisAddr)
	}
	if cfg.Server.HTTP.Enabled {
		t.Error("HTTP should be disabled by default")
	}
	if cfg.Keyspace.Shards != DefaultShards {
		t.Errorf("Shards = %d, want %d", cfg.Keyspace.Shards, DefaultShards)
	}
	if cfg.Keyspace.SweepInterval != 0 {
		t.Errorf("SweepInterval = %v, want 0", cfg.Keyspace.SweepInterval)
	}
	if cfg.PubSub.WriteTimeout != DefaultPubSubWriteTimeout {
		t.Errorf("PubSub.WriteTimeout = %v, want %v", cfg.PubSub.WriteTimeout, DefaultPubSubWriteTimeout)
	}
	if cfg.PubSub.SendBuffer != DefaultPubSubSendBuffer {
		t.Errorf("PubSub.SendBuffer = %d, want %d", cfg.PubSub.SendBuffer, DefaultPubSubSendBuffer)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{
			name:    "missing redis addr",
			mutate:  func(c *ServerConfig) { c.Server.Redis.Addr = "" },
			wantErr: "server.redis.addr is required",
		},
		{
			name:    "redis addr without port",
			mutate:  func(c *ServerConfig) { c.Server.Redis.Addr = "localhost" },
			wantErr: "server.redis.addr",
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *ServerConfig) { c.Server.Redis.ReadTimeout = -time.Second },
			wantErr: "server.redis.read_timeout must not be negative",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *ServerConfig) { c.Server.Redis.RateLimit = -1 },
			wantErr: "server.redis.rate_limit",
		},
		{
			name:    "negative max conns",
			mutate:  func(c *ServerConfig) { c.Server.Redis.MaxConns = -1 },
			wantErr: "server.redis.max_conns",
		},
		{
			name: "http addr conflicts",
			mutate: func(c *ServerConfig) {
				c.Server.HTTP.Enabled = true
				c.Server.HTTP.Addr = c.Server.Redis.Addr
			},
			wantErr: "conflicts",
		},
		{
			name: "bad http addr",
			mutate: func(c *ServerConfig) {
				c.Server.HTTP.Enabled = true
				c.Server.HTTP.Addr = "nope"
			},
			wantErr: "server.http.addr",
		},
		{
			name:    "shards not power of two",
			mutate:  func(c *ServerConfig) { c.Keyspace.Shards = 12 },
			wantErr: "keyspace.shards",
		},
		{
			name:    "zero shards",
			mutate:  func(c *ServerConfig) { c.Keyspace.Shards = 0 },
			wantErr: "keyspace.shards",
		},
		{
			name:    "negative sweep interval",
			mutate:  func(c *ServerConfig) { c.Keyspace.SweepInterval = -time.Second },
			wantErr: "keyspace.sweep_interval",
		},
		{
			name:    "negative delivery timeout",
			mutate:  func(c *ServerConfig) { c.PubSub.WriteTimeout = -time.Second },
			wantErr: "pubsub.write_timeout",
		},
		{
			name:    "zero delivery timeout",
			mutate:  func(c *ServerConfig) { c.PubSub.WriteTimeout = 0 },
			wantErr: "pubsub.write_timeout",
		},
		{
			name:    "zero send buffer",
			mutate:  func(c *ServerConfig) { c.PubSub.SendBuffer = 0 },
			wantErr: "pubsub.send_buffer",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *ServerConfig) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *ServerConfig) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Redis.Addr = ""
	cfg.Keyspace.Shards = 3
	cfg.Log.Level = "loud"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() expected error")
	}
	for _, want := range []string{"server.redis.addr", "keyspace.shards", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestVerify_HTTPDisabledIgnoresAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTP.Addr = ""
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
