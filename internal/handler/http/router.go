package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nileshop/backend/internal/service"
	"github.com/nileshop/backend/pkg/health"
	"github.com/nileshop/backend/pkg/middleware"
)

// RouterConfig bundles everything the router needs beyond the services.
type RouterConfig struct {
	ServiceName    string
	Logger         *slog.Logger
	Health         *health.Handler
	TokenValidator middleware.TokenValidator
	RateLimitRPS   int
	RateLimitBurst int
	PprofCIDRs     []string
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all store routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	cartService *service.CartService,
	orderService *service.OrderService,
	catalogService *service.CatalogService,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))
	}

	r.Get("/healthz", cfg.Health.LivenessHandler())
	r.Get("/readyz", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	cartHandler := NewCartHandler(cartService, cfg.Logger)
	orderHandler := NewOrderHandler(checkoutService, orderService, cfg.Logger)
	catalogHandler := NewCatalogHandler(catalogService, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.CacheControl(60))
			r.Get("/", catalogHandler.List)
			r.Get("/{id}", catalogHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.Get)
				r.Delete("/", cartHandler.Clear)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{id}", cartHandler.UpdateItem)
				r.Delete("/items/{id}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Create)
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.Get)

				r.With(middleware.RequireRole("admin")).Put("/{id}/status", orderHandler.UpdateStatus)
			})
		})
	})

	return r
}
