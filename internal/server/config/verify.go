package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/pulsekv/internal/telemetry/logger"
	"github.com/yndnr/pulsekv/pkg/cmap"
)

// Verify validates the configuration and returns all problems found.
func Verify(cfg *ServerConfig) error {
	var errs []error

	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifyKeyspace(&cfg.Keyspace)...)
	errs = append(errs, verifyPubSub(&cfg.PubSub)...)
	errs = append(errs, verifyLog(&cfg.Log)...)

	return errors.Join(errs...)
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error

	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		errs = append(errs, err)
	}
	for name, d := range map[string]time.Duration{
		"server.redis.read_timeout":  cfg.Redis.ReadTimeout,
		"server.redis.write_timeout": cfg.Redis.WriteTimeout,
		"server.redis.idle_timeout":  cfg.Redis.IdleTimeout,
	} {
		if err := nonNegative(name, d); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Redis.RateLimit < 0 {
		errs = append(errs, errors.New("server.redis.rate_limit must not be negative"))
	}
	if cfg.Redis.MaxConns < 0 {
		errs = append(errs, errors.New("server.redis.max_conns must not be negative"))
	}

	if cfg.HTTP.Enabled {
		if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
			errs = append(errs, err)
		} else if cfg.HTTP.Addr == cfg.Redis.Addr {
			errs = append(errs, fmt.Errorf("server.http.addr %q conflicts with server.redis.addr", cfg.HTTP.Addr))
		}
	}

	return errs
}

func verifyKeyspace(cfg *KeyspaceSection) []error {
	var errs []error
	if cfg.Shards <= 0 || !cmap.IsPowerOfTwo(cfg.Shards) {
		errs = append(errs, fmt.Errorf("keyspace.shards must be a positive power of two, got %d", cfg.Shards))
	}
	if err := nonNegative("keyspace.sweep_interval", cfg.SweepInterval); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func verifyPubSub(cfg *PubSubSection) []error {
	var errs []error
	// Zero would leave deliveries without a deadline.
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pubsub.write_timeout must be positive, got %s", cfg.WriteTimeout))
	}
	if cfg.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("pubsub.send_buffer must be positive, got %d", cfg.SendBuffer))
	}
	return errs
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	if _, err := logger.ParseLevel(cfg.Level); err != nil || cfg.Level == "" {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	if !logger.ValidFormat(cfg.Format) || cfg.Format == "" {
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	return errs
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q: %w", name, addr, err)
	}
	return nil
}

func nonNegative(name string, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%s must not be negative, got %s", name, d)
	}
	return nil
}
