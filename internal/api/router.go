package api

import (
	"collections-engine/internal/api/handler"
	mw "collections-engine/internal/api/middleware"
	"collections-engine/internal/config"
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/domain/payment"
	"log/slog"
	"net/http"
	"time"

	_ "collections-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(paymentService payment.PaymentService, customerService customer.CustomerService, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupCustomerRoutes(router, cfg, customerService, logger)
	setupPaymentRoutes(router, paymentService, cfg, logger)
	setupWebhookRoutes(router, paymentService, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupPaymentRoutes(router *chi.Mux, paymentService payment.PaymentService, cfg *config.Config, logger *slog.Logger) {
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/payments", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", paymentHandler.InitiatePayment)
		r.Get("/{transactionRef}", paymentHandler.GetPayment)
		r.Post("/{transactionRef}/confirm", paymentHandler.ConfirmPayment)
		r.Post("/{transactionRef}/cancel", paymentHandler.CancelPayment)
		r.Post("/{transactionRef}/fail", paymentHandler.MarkPaymentFailed)
	})
}

// The webhook endpoint is deliberately outside the bearer-auth group: the
// messaging gateway authenticates at the network layer, and the endpoint
// never exposes internal state beyond the customer-facing reply text.
func setupWebhookRoutes(router *chi.Mux, paymentService payment.PaymentService, logger *slog.Logger) {
	webhookHandler := handler.NewWebhookHandler(paymentService, logger)

	router.Route("/webhooks", func(r chi.Router) {
		r.Post("/inbound", webhookHandler.HandleInboundMessage)
	})
}

func setupCustomerRoutes(r chi.Router, cfg *config.Config, svc customer.CustomerService, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc, logger)

	r.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Get("/{customerRef}", h.GetCustomer)
	})
}
