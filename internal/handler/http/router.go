package http

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	"github.com/vasiliy-maslov/uniform-shop/internal/metrics"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

type RouterConfig struct {
	Orders  order.Service
	Cart    cart.Service
	Tokens  TokenValidator
	Metrics *metrics.Metrics

	CheckoutRateLimit float64
	CheckoutRateBurst int
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)

	var recorder CheckoutRecorder
	if cfg.Metrics != nil {
		router.Use(Instrument(cfg.Metrics))
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
		recorder = cfg.Metrics
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	orderHandler := NewOrderHandler(cfg.Orders, recorder, RateLimitPerUser(cfg.CheckoutRateLimit, cfg.CheckoutRateBurst))
	cartHandler := NewCartHandler(cfg.Cart)
	adminHandler := NewAdminHandler(cfg.Orders)

	router.Route("/api", func(api chi.Router) {
		api.Use(Authenticate(cfg.Tokens))
		api.Use(tagSentryUser)

		orderHandler.RegisterRoutes(api)
		cartHandler.RegisterRoutes(api)

		api.Group(func(admin chi.Router) {
			admin.Use(RequireAdmin)
			adminHandler.RegisterRoutes(admin)
		})
	})

	return router
}

func tagSentryUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			if identity, ok := IdentityFromContext(r.Context()); ok {
				hub.Scope().SetUser(sentry.User{ID: identity.UserID.String()})
				hub.Scope().SetTag("role", string(identity.Role))
			}
		}
		next.ServeHTTP(w, r)
	})
}
