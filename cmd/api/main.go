package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/api/routes"
	"github.com/freshlane/freshlane-backend/internal/addresses"
	"github.com/freshlane/freshlane-backend/internal/auth"
	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/payments"
	"github.com/freshlane/freshlane-backend/internal/reviews"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/db"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/metrics"
	"github.com/freshlane/freshlane-backend/pkg/migrate"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/redis"
	"github.com/freshlane/freshlane-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	orderMetrics := metrics.NewOrderMetrics(registry)

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	addressesRepo := addresses.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:     usersRepo,
		SessionStore: redisClient,
		JWTConfig:    cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner: dbClient,
		UserRepoFactory: func(tx *gorm.DB) auth.RegisterUserRepository {
			return usersRepo.WithTx(tx)
		},
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	reviewService, err := reviews.NewService(reviewsRepo, catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create review service", err)
		os.Exit(1)
	}

	addressService, err := addresses.NewService(addressesRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    ordersRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Gateway: gateway,
		Metrics: orderMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:        gateway,
		GatewayTimeout: cfg.Payments.GatewayTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := payments.NewWebhookService(payments.WebhookServiceParams{
		Ledger: func(tx *gorm.DB) payments.OrderLedger {
			return ordersRepo.WithTx(tx)
		},
		Tx:     dbClient,
		Outbox: outboxSvc,
		Guard:  webhookGuard,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Registry:    registry,
		HTTPMetrics: httpMetrics,

		AuthService:     authService,
		RegisterService: registerService,
		UserService:     userService,
		CatalogService:  catalogService,
		ReviewService:   reviewService,
		AddressService:  addressService,
		OrderService:    orderService,
		PaymentService:  paymentService,

		StripeClient:   stripeClient,
		WebhookService: webhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during shutdown", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
