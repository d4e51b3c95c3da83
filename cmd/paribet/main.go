package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/paribet/config"
	"github.com/alejandrodnm/paribet/internal/adapters/notify"
	"github.com/alejandrodnm/paribet/internal/adapters/redisbus"
	"github.com/alejandrodnm/paribet/internal/adapters/storage"
	"github.com/alejandrodnm/paribet/internal/application/engine"
	"github.com/alejandrodnm/paribet/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	scenarios := flag.String("scenario", "", "comma-separated scenario files (.yaml|.toml) to simulate")
	dsn := flag.String("db", "", "persist the action log: SQLite path or postgres:// DSN (overrides config)")
	replay := flag.Bool("replay", false, "rebuild every stored market from its log and verify the snapshots")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	compact := flag.Bool("compact", false, "print one line per market instead of full tables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *scenarios == "" && !*replay {
		fmt.Fprintln(os.Stderr, "nothing to do: use -scenario and/or -replay")
		flag.Usage()
		os.Exit(2)
	}

	engCfg, err := engineConfig(cfg)
	if err != nil {
		slog.Error("invalid engine config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Replay siempre lee del store configurado; la simulación solo persiste con -db.
	persist := *dsn != "" || *replay
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}

	slog.Info("paribet starting",
		"config", *configPath,
		"scenarios", *scenarios,
		"replay", *replay,
		"persist", persist,
		"curve", cfg.Engine.CommissionCurve,
	)

	var store ports.ActionStore
	if persist {
		store, err = storage.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "backend", storage.Backend(cfg.Storage.DSN))
			os.Exit(1)
		}
		defer store.Close()
	}

	sinks := engine.MultiSink{notify.NewLogSink(nil)}
	if cfg.Redis.Addr != "" {
		pub, err := redisbus.New(ctx, redisbus.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLS,
			Prefix:     cfg.Redis.Prefix,

			PublishRate:  cfg.Redis.PublishRate,
			PublishBurst: cfg.Redis.PublishBurst,
		})
		if err != nil {
			slog.Warn("redis unavailable, events only logged", "err", err, "addr", cfg.Redis.Addr)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	eng := engine.New(engCfg, store, sinks)
	notifier := notify.NewConsole(*compact)

	if *replay {
		if !runReplay(ctx, eng, notifier) {
			os.Exit(1)
		}
	}

	if *scenarios != "" {
		paths := strings.Split(*scenarios, ",")
		if !runScenarios(ctx, eng, notifier, paths, persist) {
			os.Exit(1)
		}
	}

	slog.Info("paribet stopped cleanly")
}

// engineConfig traduce la configuración al engine.
func engineConfig(cfg *config.Config) (engine.Config, error) {
	params, err := cfg.MarketParams()
	if err != nil {
		return engine.Config{}, err
	}
	ec := engine.DefaultConfig()
	ec.Limits.MinBetAmount = cfg.Engine.MinBetAmount
	ec.Limits.MinVelocity = cfg.Engine.MinVelocity
	ec.Limits.VelocityFactorPct = cfg.Engine.VelocityFactorPct
	ec.Admin = cfg.Engine.Admin
	ec.DefaultParams = params
	ec.CommissionCurve = params.CommissionCurve
	ec.Workers = cfg.Engine.ReplayWorkers
	return ec, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
