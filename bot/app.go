// Package bot assembles the dispatch pipeline, the built-in commands,
// and the Telegram runtime into a runnable application.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wabot/core/bootstrap"
	corecmd "wabot/core/cmd"
	coreconfig "wabot/core/config"
	"wabot/core/engine"
	"wabot/core/engine/middleware"
	"wabot/core/logger"
	"wabot/core/settings"
	tgtransport "wabot/core/transport/telegram"
)

const sweepInterval = time.Minute

// App is the assembled bot application.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	tg       *tgtransport.Bot
	registry *engine.Registry
	limiter  *engine.Limiter
	pipeline *engine.Pipeline
}

// Build bootstraps infrastructure and wires the pipeline.
func Build(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.App, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}

	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	tg, err := tgtransport.New(&cfg.Config)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	registry := engine.NewRegistry()
	limiter := engine.NewLimiter(limiterConfig(cfg.RateLimit))
	stats := engine.NewStats()

	registerCommands(registry, &deps{
		registry:  registry,
		store:     infra.Settings,
		startedAt: time.Now(),
	})

	if err := registry.Reload(runtimeConfig(&cfg.Config)); err != nil {
		logger.Warn(ctx, "engine", "config.conflicts",
			slog.String("err", err.Error()),
		)
	}

	// Toggles persisted by the toggle command win over the config list.
	toggles, err := settings.DisabledToggles(ctx, infra.Settings)
	if err != nil {
		logger.Warn(ctx, "engine", "settings.read_failed",
			slog.String("key", settings.KeyDisabled),
			slog.String("err", err.Error()),
		)
	}
	for name, off := range toggles {
		registry.SetDisabled(name, off)
	}

	reporter := engine.NewReporter(tg.Transport(), cfg.Bot.Owner)

	pipeline := engine.NewPipeline(
		middleware.Recover(),
		middleware.SelfFilter(infra.Settings),
		middleware.MuteFilter(infra.Settings),
		middleware.AntiLink(infra.Settings),
		middleware.Triggers(infra.Settings),
		middleware.Stats(stats),
		engine.Dispatch(engine.DispatchConfig{
			Registry:     registry,
			Limiter:      limiter,
			Reporter:     reporter,
			Owner:        cfg.Bot.Owner,
			SuggestLimit: cfg.Bot.SuggestLimit,
		}),
	)

	return &App{
		cfg:      cfg,
		infra:    infra,
		tg:       tg,
		registry: registry,
		limiter:  limiter,
		pipeline: pipeline,
	}, nil
}

// Run starts the background workers and the update loop, blocking until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.infra.Close()

	go a.limiter.RunSweeper(ctx, sweepInterval)

	err := coreconfig.Watch(ctx, a.cfg.path, a.applyRuntime(ctx), func(err error) {
		logger.Warn(ctx, "engine", "config.reload_failed",
			slog.String("path", a.cfg.path),
			slog.String("err", err.Error()),
		)
	})
	if err != nil {
		logger.Warn(ctx, "engine", "config.watch_failed",
			slog.String("path", a.cfg.path),
			slog.String("err", err.Error()),
		)
	}

	return a.tg.Run(ctx, a.pipeline)
}

// applyRuntime pushes a reloaded config into the registry and limiter.
// Conflicts are logged; the valid remainder still applies.
func (a *App) applyRuntime(ctx context.Context) func(*coreconfig.Config) {
	return func(cfg *coreconfig.Config) {
		if err := a.registry.Reload(runtimeConfig(cfg)); err != nil {
			logger.Warn(ctx, "engine", "config.conflicts",
				slog.String("err", err.Error()),
			)
		}
		a.limiter.SetConfig(limiterConfig(cfg.RateLimit))
		logger.Info(ctx, "engine", "config.reloaded",
			slog.String("prefix", cfg.Bot.Prefix),
			slog.Int("aliases", len(cfg.Bot.Aliases)),
			slog.Int("disabled", len(cfg.Bot.DisabledCommands)),
		)
	}
}

func runtimeConfig(cfg *coreconfig.Config) engine.RuntimeConfig {
	return engine.RuntimeConfig{
		Prefix:           cfg.Bot.Prefix,
		Aliases:          cfg.Bot.Aliases,
		DisabledCommands: cfg.Bot.DisabledCommands,
	}
}

func limiterConfig(rl coreconfig.RateLimitConfig) engine.LimiterConfig {
	return engine.LimiterConfig{
		Enabled:         rl.Enabled,
		UserCooldown:    secs(rl.UserCooldownSeconds),
		CommandCooldown: secs(rl.CommandCooldownSeconds),
		BurstLimit:      rl.BurstLimit,
		BurstWindow:     secs(rl.BurstWindowSeconds),
	}
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
