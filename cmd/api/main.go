package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/checkout-backend/api/controllers"
	"github.com/angelmondragon/checkout-backend/api/routes"
	"github.com/angelmondragon/checkout-backend/internal/card"
	"github.com/angelmondragon/checkout-backend/internal/customers"
	"github.com/angelmondragon/checkout-backend/internal/inventory"
	"github.com/angelmondragon/checkout-backend/internal/notifications"
	"github.com/angelmondragon/checkout-backend/internal/ordernumber"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	"github.com/angelmondragon/checkout-backend/internal/products"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
	"github.com/angelmondragon/checkout-backend/pkg/migrate"
	"github.com/angelmondragon/checkout-backend/pkg/outbox"
	"github.com/angelmondragon/checkout-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	deps := routes.Dependencies{
		Ready:   map[string]controllers.Pinger{"database": dbClient},
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	// Without Redis the api runs with idempotency replay and payment rate
	// limiting switched off.
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.Idempotency = redisClient
		deps.RateLimiter = redisClient
		deps.Ready["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency and rate limiting disabled")
	}

	if err := wireServices(cfg, logg, dbClient, checkoutMetrics, &deps); err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func wireServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.CheckoutMetrics, deps *routes.Dependencies) error {
	conn := dbClient.DB()

	productService, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		return err
	}
	ledger, err := inventory.NewLedger(inventory.NewRepository(conn), m, logg)
	if err != nil {
		return err
	}

	cards := card.NewValidator(time.Now)
	simulator := payment.NewSimulator(payment.Options{
		Validator: cards,
		Latency:   cfg.Payment.SimulatedLatency,
		Metrics:   m,
		Logger:    logg,
	})

	renderer, err := notifications.NewRenderer(cfg.SMTP.StoreURL)
	if err != nil {
		return err
	}
	var sender notifications.Sender = notifications.NewLogSender(logg)
	if cfg.SMTP.Enabled() {
		smtpSender, err := notifications.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return err
		}
		sender = smtpSender
	}
	notifier, err := notifications.NewNotifier(notifications.Options{
		Renderer: renderer,
		Sender:   sender,
		Queue:    notifications.NewOutboxQueue(conn, outbox.NewService(outbox.NewRepository(conn), logg)),
		Metrics:  m,
		Timeout:  cfg.Checkout.NotificationTimeout,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	taxRate, err := cfg.Checkout.Tax()
	if err != nil {
		return err
	}

	orderRepo := orders.NewRepository(conn)
	orderService, err := orders.NewService(orders.Deps{
		Repo:        orderRepo,
		Customers:   customers.NewRepository(conn),
		Products:    products.NewRepository(conn),
		Ledger:      ledger,
		Numbers:     ordernumber.NewGenerator(orderRepo),
		Payments:    simulator,
		Cards:       cards,
		Notifier:    notifier,
		Tx:          dbClient,
		Metrics:     m,
		Logger:      logg,
		TaxRate:     taxRate,
		Currency:    cfg.Checkout.Currency,
		MaxQuantity: cfg.Checkout.MaxQuantity,
	})
	if err != nil {
		return err
	}

	deps.Products = productService
	deps.Ledger = ledger
	deps.Orders = orderService
	deps.Payments = simulator
	deps.Cards = cards
	return nil
}
