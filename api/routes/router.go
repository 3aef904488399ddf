package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/smart-inventory/api/controllers"
	inventorycontrollers "github.com/angelmondragon/smart-inventory/api/controllers/inventory"
	"github.com/angelmondragon/smart-inventory/api/middleware"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/redis"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Ledger     inventorycontrollers.Ledger
	Reorders   inventorycontrollers.Reorders
	Forecaster inventorycontrollers.Forecaster
	Planner    inventorycontrollers.Planner
	Reconciler inventorycontrollers.Reconciler
	SalesLog   inventorycontrollers.SalesLog
}

// Infra bundles the process dependencies the router needs beyond services.
// A nil Redis disables idempotency and rate limiting.
type Infra struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
}

// NewRouter mounts health, metrics and the inventory API.
func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSAllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{"db": infra.DB}
	if infra.Redis != nil {
		readiness["redis"] = infra.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	gatherer := infra.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var (
		idempotency = func(next http.Handler) http.Handler { return next }
		rateLimit   = func(next http.Handler) http.Handler { return next }
	)
	if infra.Redis != nil {
		idempotency = middleware.Idempotency(infra.Redis, cfg.API.IdempotencyTTL, logg)
		rateLimit = middleware.RateLimit(
			middleware.NewRateLimitPolicy("inventory", cfg.API.RateLimitWindow, cfg.API.RateLimitPerIP),
			infra.Redis,
			logg,
		)
	}

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(rateLimit)

		r.Get("/", inventorycontrollers.List(svc.Ledger, logg))
		r.Get("/overview", inventorycontrollers.Overview(svc.Ledger, logg))
		r.Get("/low-stock", inventorycontrollers.LowStock(svc.Ledger, logg))
		r.Get("/stockout-risks", inventorycontrollers.StockoutRisks(svc.Reconciler, logg))
		r.Get("/reorders/pending", inventorycontrollers.PendingReorders(svc.Reorders, logg))
		r.Post("/reconcile", inventorycontrollers.ReconcileAll(svc.Reconciler, logg))

		r.Group(func(r chi.Router) {
			r.Use(idempotency)
			r.Post("/reorders/trigger", inventorycontrollers.TriggerReorders(svc.Reorders, logg))
		})

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", inventorycontrollers.Get(svc.Ledger, logg))
			r.Post("/forecast", inventorycontrollers.Forecast(svc.Forecaster, svc.Planner, logg))
			r.Post("/reconcile", inventorycontrollers.ReconcileProduct(svc.Reconciler, logg))

			r.Group(func(r chi.Router) {
				r.Use(idempotency)
				r.Patch("/", inventorycontrollers.Update(svc.Ledger, logg))
				r.Post("/reserve", inventorycontrollers.Reserve(svc.Ledger, logg))
				r.Post("/release", inventorycontrollers.Release(svc.Ledger, logg))
				r.Post("/confirm", inventorycontrollers.Confirm(svc.Ledger, logg))
				r.Post("/sales-logs", inventorycontrollers.AppendSalesLog(svc.SalesLog, logg))
				r.Put("/auto-reorder", inventorycontrollers.ToggleAutoReorder(svc.Reorders, logg))
				r.Put("/reorder-parameters", inventorycontrollers.UpdateReorderParameters(svc.Reorders, logg))
			})
		})
	})

	return r
}
