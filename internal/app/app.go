// Package app wires the inventory services from configuration so every binary
// builds the same graph.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/smart-inventory/internal/autoreorder"
	"github.com/angelmondragon/smart-inventory/internal/catalog"
	"github.com/angelmondragon/smart-inventory/internal/forecast"
	"github.com/angelmondragon/smart-inventory/internal/guard"
	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/internal/reconcile"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/bigquery"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
	"github.com/angelmondragon/smart-inventory/pkg/openai"
	"github.com/angelmondragon/smart-inventory/pkg/pubsub"
	"github.com/angelmondragon/smart-inventory/pkg/redis"
)

// Params are the process-level resources the services are built on.
// Redis is optional; without it the guard stays in-process.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

// App is the wired service graph.
type App struct {
	Inventory   *inventory.Service
	Catalog     catalog.Repository
	SalesLog    *saleslog.Service
	Planner     *reorder.Planner
	Forecaster  *forecast.Service
	AutoReorder *autoreorder.Engine
	Sweeper     *reconcile.Sweeper
	Notifier    *notifications.Dispatcher
	Metrics     *metrics.InventoryMetrics

	// Archive is set when BigQuery history is enabled.
	Archive *saleslog.BigQueryArchive

	closers []func() error
}

// Build constructs every service. Clients opened here are released by Close.
func Build(ctx context.Context, p Params) (*App, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	cfg := p.Config
	logg := p.Logger
	a := &App{Metrics: metrics.NewInventoryMetrics(reg)}

	fail := func(err error) (*App, error) {
		return nil, multierr.Append(err, a.Close())
	}

	notifier, err := a.buildNotifier(ctx, cfg, logg)
	if err != nil {
		return fail(err)
	}
	a.Notifier = notifier

	locker, err := buildLocker(cfg, p.Redis)
	if err != nil {
		return fail(err)
	}
	g, err := guard.New(guard.Params{
		Locker:     locker,
		Logger:     logg,
		Metrics:    a.Metrics,
		MaxRetries: cfg.Guard.MaxRetries,
		RetryDelay: cfg.Guard.RetryDelay,
	})
	if err != nil {
		return fail(err)
	}

	a.Catalog = catalog.NewRepository(p.DB.DB())
	a.Inventory, err = inventory.NewService(inventory.ServiceParams{
		Repo:             inventory.NewRepository(p.DB.DB()),
		DB:               p.DB,
		Guard:            g,
		Catalog:          a.Catalog,
		Notifier:         notifier,
		Metrics:          a.Metrics,
		Logger:           logg,
		AdminEmail:       cfg.Notifications.AdminEmail,
		DefaultThreshold: cfg.Sweep.DefaultLowThreshold,
		SalesHistoryDays: cfg.Sweep.SalesHistoryDays,
	})
	if err != nil {
		return fail(err)
	}

	a.SalesLog, err = saleslog.NewService(saleslog.NewRepository(p.DB.DB()), logg)
	if err != nil {
		return fail(err)
	}

	a.Planner, err = reorder.NewPlanner(a.Inventory, a.Catalog, reorder.SettingsFromConfig(cfg.Reorder), logg)
	if err != nil {
		return fail(err)
	}

	var history forecast.HistorySource = a.SalesLog
	if cfg.FeatureFlags.BigQueryHistory {
		archive, err := a.buildArchive(ctx, cfg, logg)
		if err != nil {
			return fail(err)
		}
		a.Archive = archive
		history = archive
	}

	var estimator forecast.Estimator
	if cfg.FeatureFlags.AIForecast {
		client, err := openai.NewFromConfig(cfg.OpenAI)
		if err != nil {
			return fail(fmt.Errorf("openai client: %w", err))
		}
		prompt, err := forecast.NewPromptEstimator(client)
		if err != nil {
			return fail(err)
		}
		estimator = prompt
	}

	a.Forecaster, err = forecast.NewService(forecast.Params{
		Ledger:    a.Inventory,
		Sales:     a.SalesLog,
		History:   history,
		Catalog:   a.Catalog,
		Planner:   a.Planner,
		Estimator: estimator,
		Metrics:   a.Metrics,
		Logger:    logg,
		Config:    cfg.Forecast,
	})
	if err != nil {
		return fail(err)
	}

	a.AutoReorder, err = autoreorder.NewEngine(autoreorder.Params{
		Ledger:     a.Inventory,
		Catalog:    a.Catalog,
		Planner:    a.Planner,
		Notifier:   notifier,
		Metrics:    a.Metrics,
		Logger:     logg,
		Config:     cfg.Reorder,
		AdminEmail: cfg.Notifications.AdminEmail,
	})
	if err != nil {
		return fail(err)
	}

	reservations, err := reconcile.NewReservationSource(cfg.Sweep.ReservationGroundTruth, p.DB.DB(), a.Inventory)
	if err != nil {
		return fail(err)
	}
	a.Sweeper, err = reconcile.NewSweeper(reconcile.Params{
		Ledger:       a.Inventory,
		Reservations: reservations,
		Catalog:      a.Catalog,
		Notifier:     notifier,
		Metrics:      a.Metrics,
		Logger:       logg,
		Config:       cfg.Sweep,
		AdminEmail:   cfg.Notifications.AdminEmail,
	})
	if err != nil {
		return fail(err)
	}

	return a, nil
}

// Close releases the clients Build opened.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

func (a *App) buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*notifications.Dispatcher, error) {
	var sender notifications.Sender = notifications.NewLogSender(logg)
	if cfg.FeatureFlags.PubSubNotifications {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		pubsubSender, err := notifications.NewPubSubSender(client)
		if err != nil {
			return nil, err
		}
		sender = pubsubSender
	}
	return notifications.NewDispatcher(sender, logg)
}

func (a *App) buildArchive(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*saleslog.BigQueryArchive, error) {
	client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	archive, err := saleslog.NewBigQueryArchive(client, saleslog.RetryPolicy{})
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("daily sales table: %w", err)
	}
	return archive, nil
}

func buildLocker(cfg *config.Config, redisClient *redis.Client) (guard.Locker, error) {
	if !cfg.FeatureFlags.DistributedGuard {
		return guard.NewMemoryLocker(), nil
	}
	if redisClient == nil {
		return nil, fmt.Errorf("distributed guard requires redis")
	}
	return guard.NewRedisLocker(redisClient, cfg.Guard.LockTTL)
}
