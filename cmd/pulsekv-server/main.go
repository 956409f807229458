package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pulsekv/internal/infra/buildinfo"
	"github.com/yndnr/pulsekv/internal/infra/confloader"
	"github.com/yndnr/pulsekv/internal/infra/shutdown"
	"github.com/yndnr/pulsekv/internal/pubsub"
	"github.com/yndnr/pulsekv/internal/server/config"
	"github.com/yndnr/pulsekv/internal/server/httpserver"
	"github.com/yndnr/pulsekv/internal/server/redisserver"
	"github.com/yndnr/pulsekv/internal/storage/keyspace"
	"github.com/yndnr/pulsekv/internal/telemetry/logger"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "pulsekv-server %s\n", buildinfo.String())
	}

	return &cli.App{
		Name:    "pulsekv-server",
		Usage:   "in-memory key-value store with publish/subscribe",
		Version: buildinfo.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"PULSEKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "RESP listen address (overrides server.redis.addr)",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "admin HTTP listen address; setting it enables the admin server",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log.level)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"), flagOverrides(c))
			if err != nil {
				return err
			}
			return run(c.Context, cfg, c.String("config"))
		},
	}
}

// flagOverrides maps explicitly set flags onto configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("addr") {
		m["server.redis.addr"] = c.String("addr")
	}
	if c.IsSet("http-addr") {
		m["server.http.addr"] = c.String("http-addr")
		m["server.http.enabled"] = true
	}
	if c.IsSet("log-level") {
		m["log.level"] = c.String("log-level")
	}
	return m
}

// loadConfig layers defaults, the config file, PULSEKV_* environment
// variables and flag overrides, in that order, then verifies the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("apply flags: %w", err)
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.ServerConfig, configFile string) error {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogger := logger.Slog(log)

	info := buildinfo.Get()
	log.Info("starting pulsekv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)

	metrics := metric.NewRegistry()

	store := keyspace.New(
		keyspace.WithShards(cfg.Keyspace.Shards),
		keyspace.WithExpiryCounters(
			metrics.KeysExpired.WithLabelValues("lazy"),
			metrics.KeysExpired.WithLabelValues("sweep"),
		),
	)
	registry := pubsub.NewRegistry(
		pubsub.WithLogger(slogger.With("component", "pubsub")),
		pubsub.WithCounters(metrics.MessagesPublished, metrics.Deliveries, metrics.DeliveryFailures),
	)
	metrics.MustRegister(metric.NewCollector(metric.Sources{
		Keys:          store.Len,
		Channels:      registry.Channels,
		Subscriptions: registry.Subscriptions,
	}))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, slogger)

	// Hooks run in reverse registration order, so listeners stop before
	// the background workers.
	shutdownHandler.OnShutdown("background", func(context.Context) error {
		cancelRun()
		return nil
	})

	if cfg.Keyspace.SweepInterval > 0 {
		sweeper := keyspace.NewSweeper(store, cfg.Keyspace.SweepInterval, slogger.With("component", "sweeper"))
		go sweeper.Run(runCtx)
	}

	respServer := redisserver.New(&redisserver.Config{
		Addr:            cfg.Server.Redis.Addr,
		ReadTimeout:     cfg.Server.Redis.ReadTimeout,
		WriteTimeout:    cfg.Server.Redis.WriteTimeout,
		IdleTimeout:     cfg.Server.Redis.IdleTimeout,
		DeliveryTimeout: cfg.PubSub.WriteTimeout,
		DeliveryBuffer:  cfg.PubSub.SendBuffer,
		RateLimit:       cfg.Server.Redis.RateLimit,
		MaxConns:        cfg.Server.Redis.MaxConns,
	}, store, registry,
		redisserver.WithLogger(slogger.With("component", "redisserver")),
		redisserver.WithMetrics(metrics),
	)
	if err := respServer.Start(runCtx); err != nil {
		return fmt.Errorf("start RESP server: %w", err)
	}
	log.Info("RESP server listening", "addr", respServer.Addr().String())
	shutdownHandler.OnShutdown("redisserver", respServer.Shutdown)

	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(httpserver.RouterConfig{
			Registry: registry,
			Metrics:  metrics,
			Stats: func() httpserver.Stats {
				return httpserver.Stats{
					Keys:        store.Len(),
					Connections: respServer.ActiveConns(),
					ShardKeys:   store.ShardLoad(),
				}
			},
			Logger:       slogger.With("component", "httpserver"),
			WriteTimeout: cfg.PubSub.WriteTimeout,
			SendBuffer:   cfg.PubSub.SendBuffer,
			EnableAudit:  true,
		})
		adminServer := httpserver.New(cfg.Server.HTTP.Addr, router)
		errCh, err := adminServer.Start()
		if err != nil {
			_ = respServer.Shutdown(context.Background())
			return fmt.Errorf("start admin server: %w", err)
		}
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				log.Error("admin server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
		log.Info("admin HTTP server listening", "addr", adminServer.Addr().String())
		shutdownHandler.OnShutdown("httpserver", adminServer.Shutdown)
	}

	if configFile != "" {
		stop, err := watchConfig(configFile, slogger)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// watchConfig reloads log.level whenever the config file changes. Other
// settings need a restart.
func watchConfig(path string, log *slog.Logger) (stop func() error, err error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(changed string) {
		cfg, err := loadConfig(changed, nil)
		if err != nil {
			log.Warn("config reload rejected", "path", changed, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
