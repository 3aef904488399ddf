package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/smart-inventory/internal/app"
	"github.com/angelmondragon/smart-inventory/internal/scheduler"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db"
	"github.com/angelmondragon/smart-inventory/pkg/instance"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
	"github.com/angelmondragon/smart-inventory/pkg/migrate"
	"github.com/angelmondragon/smart-inventory/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "inventory-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "inventory-worker"

	logg = logger.New(logger.Options{
		ServiceName: "inventory-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Instance:    instance.ID(),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var (
		redisClient *redis.Client
		tickLock    scheduler.TickLock
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()

		lock, err := scheduler.NewRedisLock(redisClient, cfg.Scheduler.TickLockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create scheduler lock", err)
			os.Exit(1)
		}
		tickLock = lock
	} else {
		logg.Warn(context.Background(), "redis not configured, scheduler ticks are not coordinated across instances")
	}

	services, err := app.Build(context.Background(), app.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(context.Background(), "error closing service clients", err)
		}
	}()

	registry, err := scheduler.DefaultRegistry(services.JobDeps(logg), cfg.Scheduler, cfg.Sweep)
	if err != nil {
		logg.Error(context.Background(), "failed to register scheduler jobs", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(scheduler.Params{
		Logger:   logg,
		Registry: registry,
		Lock:     tickLock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting inventory worker")

	if err := sched.Initialize(ctx); err != nil {
		logg.Error(ctx, "failed to initialize scheduler", err)
		os.Exit(1)
	}

	<-ctx.Done()
	sched.StopAll()
	logg.Info(ctx, "inventory worker shutting down gracefully")
}
