package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/pictora/billing-api/docs"
	"github.com/pictora/billing-api/internal/config"
	"github.com/pictora/billing-api/internal/gateway"
	httphandler "github.com/pictora/billing-api/internal/handler/http"
	"github.com/pictora/billing-api/internal/repository"
	"github.com/pictora/billing-api/internal/service"
)

// @title           Billing Reconciliation API
// @version         1.0
// @description     Reconciles Stripe checkout, webhook events and the internal profile store into a single premium-entitlement answer.
//
// @host      localhost:8080
// @BasePath  /
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Missing secrets abort here, never on the first request.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	slog.Info("starting billing API", "env", cfg.Env, "addr", cfg.ListenAddr)

	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to initialize the profile store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("profile store ready", "path", cfg.DatabasePath)

	// Wiring: store and gateway are built once per process and injected
	// down the layers, so the core stays testable with fakes.
	profiles := repository.NewSQLiteProfileStore(db)
	stripeGW := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	billing := service.NewBillingService(profiles, stripeGW, cfg)
	billingHandler := httphandler.NewBillingHandler(billing)
	webhookHandler := httphandler.NewWebhookHandler(billing)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httphandler.CORS)
	r.Use(prometheusMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("billing API up"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Mount("/billing", billingHandler.Routes())
	r.Post("/webhook", webhookHandler.Handle)
	slog.Info("routes registered")

	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
