package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/storefront/api/handler"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/config"
	"github.com/fastygo/storefront/internal/infrastructure/messaging"
	"github.com/fastygo/storefront/internal/infrastructure/monitor"
	"github.com/fastygo/storefront/internal/infrastructure/outbox"
	pgInfra "github.com/fastygo/storefront/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/storefront/internal/infrastructure/redis"
	"github.com/fastygo/storefront/internal/metrics"
	"github.com/fastygo/storefront/internal/middleware"
	"github.com/fastygo/storefront/internal/router"
	"github.com/fastygo/storefront/internal/services"
	"github.com/fastygo/storefront/internal/services/lifecycle"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/pkg/logger"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/repository/memory"
	"github.com/fastygo/storefront/repository/postgres"
	redisRepo "github.com/fastygo/storefront/repository/redis"
	"github.com/fastygo/storefront/usecase"
	"github.com/fastygo/storefront/usecase/aggregate"
	loyaltyUC "github.com/fastygo/storefront/usecase/loyalty"
	paymentUC "github.com/fastygo/storefront/usecase/payment"
	promotionUC "github.com/fastygo/storefront/usecase/promotion"
	subscriptionUC "github.com/fastygo/storefront/usecase/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	var (
		pool        *pgxpool.Pool
		redisClient *goRedis.Client
		checks      []monitor.HealthCheck
	)

	if cfg.Store.Driver == config.StorePostgres {
		if err := pgInfra.RunMigrations(cfg.Database, cfg.Migrations, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err = pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pgInfra.Close(pool, zapLogger)
			return nil
		})
		checks = append(checks, monitor.PostgresCheck(pool))
	}

	if cfg.Store.Driver == config.StoreRedis {
		redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.RegisterCloser("redis", redisClient)
		checks = append(checks, monitor.RedisCheck(redisClient))
	}

	store := aggregateStore(cfg, pool, redisClient)
	plans := planCatalog(pool)

	outboxStore, err := outbox.Open(cfg.Outbox.Path, cfg.Outbox.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open outbox store", zap.Error(err))
	}

	mon := monitor.New(outboxStore, cfg.Scheduler.MonitorEvery, zapLogger, checks...)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	collector, err := metrics.New(cfg.AppName)
	if err != nil {
		zapLogger.Fatal("metrics setup failed", zap.Error(err))
	}

	publisher, err := messaging.New(messaging.Config{
		Driver:      cfg.Messaging.Driver,
		URL:         cfg.Messaging.AMQPURL,
		Exchange:    cfg.Messaging.Exchange,
		Brokers:     cfg.Messaging.KafkaBrokers,
		TopicPrefix: cfg.Messaging.TopicPrefix,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("event publisher setup failed", zap.Error(err))
	}

	relay, err := services.NewOutboxRelay(outboxStore, publisher, collector, zapLogger, services.RelayConfig{
		Interval:   cfg.Outbox.RelayInterval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetry,
		Retention:  time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
	})
	if err != nil {
		zapLogger.Fatal("outbox relay setup failed", zap.Error(err))
	}
	relay.Start()

	// Registered in reverse of shutdown order: the relay drains before the
	// publisher and the outbox file close.
	manager.RegisterCloser("outbox", outboxStore)
	manager.RegisterCloser("event_publisher", publisher)
	manager.Register("outbox_relay", relay.Stop)

	dispatcher := usecase.NewDispatcher(zapLogger)
	dispatcher.Subscribe(usecase.AllEvents, func(ctx context.Context, record domain.EventRecord) error {
		logger.WithRequestID(ctx, zapLogger).Debug("event committed",
			zap.String("event", record.Name),
			zap.String("aggregate_id", record.AggregateID),
			zap.Int64("version", record.Version))
		return nil
	})
	sink := usecase.Sinks{services.NewOutboxSink(outboxStore), dispatcher}
	repoOpts := []aggregate.Option{
		aggregate.WithSink(sink),
		aggregate.WithObserver(collector),
		aggregate.WithMetadata(eventMetadata),
	}

	paymentUseCase := paymentUC.New(
		aggregate.NewRepository(store, paymentUC.Codec(), zapLogger, repoOpts...), zapLogger)
	promotionUseCase := promotionUC.New(
		aggregate.NewRepository(store, promotionUC.Codec(), zapLogger, repoOpts...), cfg.Store.ConflictRetries, zapLogger)
	loyaltyUseCase := loyaltyUC.New(
		aggregate.NewRepository(store, loyaltyUC.Codec(), zapLogger, repoOpts...), cfg.Store.ConflictRetries, zapLogger)
	subscriptionUseCase := subscriptionUC.New(
		aggregate.NewRepository(store, subscriptionUC.Codec(), zapLogger, repoOpts...), plans, zapLogger)

	if cfg.Scheduler.SweepEnabled {
		sweeper, err := services.NewSubscriptionSweeper(subscriptionUseCase, collector, cfg.Scheduler.SweepInterval, zapLogger)
		if err != nil {
			zapLogger.Fatal("subscription sweeper setup failed", zap.Error(err))
		}
		sweeper.Start()
		manager.Register("subscription_sweeper", sweeper.Stop)
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Payment:      apiHandler.NewPaymentHandler(paymentUseCase, ctxAdapter, zapLogger),
		FlashSale:    apiHandler.NewFlashSaleHandler(promotionUseCase, ctxAdapter, zapLogger),
		Loyalty:      apiHandler.NewLoyaltyHandler(loyaltyUseCase, ctxAdapter, zapLogger),
		Subscription: apiHandler.NewSubscriptionHandler(subscriptionUseCase, ctxAdapter, zapLogger),
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = collector.Handler()
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware, cfg.HTTP.MetricsPath)

	handler := r.Handler
	if cfg.HTTP.EnableMetrics {
		handler = collector.Middleware(handler)
	}

	server := &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.String("messaging", cfg.Messaging.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// eventMetadata records who caused an event and in which request.
func eventMetadata(ctx context.Context) map[string]string {
	meta := make(map[string]string, 2)
	if id := logger.RequestID(ctx); id != "" {
		meta["request_id"] = id
	}
	if actor := httpcontext.ActorID(ctx); actor != "" {
		meta["actor_id"] = actor
	}
	return meta
}

func aggregateStore(cfg *config.Config, pool *pgxpool.Pool, client *goRedis.Client) repository.AggregateStore {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		return postgres.NewAggregateStore(pool)
	case config.StoreRedis:
		return redisRepo.NewAggregateStore(client, cfg.Redis.KeyPrefix)
	default:
		return memory.NewAggregateStore()
	}
}

// planCatalog reads plans from Postgres when it is available and otherwise
// serves the built-in plans.
func planCatalog(pool *pgxpool.Pool) subscriptionUC.PlanCatalog {
	if pool != nil {
		return postgres.NewPlanRepository(pool)
	}
	return subscriptionUC.NewStaticCatalog(builtinPlans()...)
}

func builtinPlans() []domain.Plan {
	specs := []struct {
		id, name, amount string
		interval         domain.BillingInterval
		trialDays        int
	}{
		{"basic-monthly", "Basic", "9.00", domain.IntervalMonthly, 0},
		{"pro-monthly", "Pro", "29.00", domain.IntervalMonthly, 14},
		{"pro-yearly", "Pro (yearly)", "290.00", domain.IntervalYearly, 14},
	}
	plans := make([]domain.Plan, 0, len(specs))
	for _, s := range specs {
		plan, err := domain.NewPlan(s.id, s.name, domain.MustMoney(s.amount, "USD"), s.interval, s.trialDays)
		if err != nil {
			panic(err)
		}
		plans = append(plans, plan)
	}
	return plans
}
