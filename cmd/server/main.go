package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cart-service/config"
	"cart-service/internal/api"
	"cart-service/internal/broker"
	"cart-service/internal/catalog"
	"cart-service/internal/models"
	"cart-service/internal/redisclient"
	"cart-service/internal/service"
	"cart-service/internal/store"
	"cart-service/internal/stripeclient"
	"cart-service/internal/util"
	"cart-service/internal/webhook"
	"cart-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting cart service", zap.String("env", cfg.Server.Env))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicFulfillment)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)

	stripeClient := stripeclient.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.CallTimeout)

	catalogService := service.NewCatalogService(db, redisClient)
	fulfillmentService := service.NewFulfillmentService(db, redisClient, eventPublisher, cfg.Stripe.IdempotencyTTL)
	checkoutService := service.NewCheckoutService(catalogService, stripeClient, cfg.Stripe.CheckoutURL)
	webhookHandler := webhook.NewHandler(fulfillmentService, 0)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, checkoutService, webhookHandler, cfg.Stripe.WebhookSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	if err := reconcileCatalog(ctx, cfg, stripeClient, catalogService, eventPublisher); err != nil {
		logger.Fatal("Catalog reconciliation failed", zap.Error(err))
	}
	handler.SetReady(true)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	fulfillmentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicFulfillment, cfg.Kafka.ConsumerGroup)
	fulfillmentWorker := worker.NewFulfillmentWorker(fulfillmentConsumer, fulfillmentService)
	go func() {
		if err := fulfillmentWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			// the failed offset stays uncommitted; a restart redelivers it
			logger.Error("Fulfillment worker stopped, shutting down", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	_ = fulfillmentWorker.Stop()

	logger.Info("Server exited")
}

// reconcileCatalog synchronizes the catalog, retrying only transient
// provider failures with exponential backoff
func reconcileCatalog(
	ctx context.Context,
	cfg *config.Config,
	remote catalog.RemoteCatalog,
	products catalog.ProductStore,
	publisher *broker.EventPublisher,
) error {
	logger := util.GetLogger()
	opts := catalog.Options{
		PageSize:  cfg.Catalog.PageSize,
		SeedCount: cfg.Catalog.SeedCount,
		Currency:  cfg.Stripe.Currency,
	}

	attempts := max(cfg.Catalog.MaxReconcileTries, 1)
	delay := cfg.Catalog.ReconcileBaseDelay

	// retries replay the same products so provider idempotency keys match
	source := catalog.NewReplaySource(catalog.NewGenerator(0))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reconciler := catalog.NewReconciler(remote, products, source, opts)
		res, err := reconciler.Reconcile(ctx)
		if err == nil {
			event := &models.CatalogSyncedEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeCatalogSynced,
					Timestamp: time.Now(),
				},
				Branch:   res.Branch,
				Products: res.Products,
			}
			if err := publisher.PublishCatalogSynced(ctx, event); err != nil {
				logger.Warn("Failed to publish CatalogSynced event", zap.Error(err))
			}
			return nil
		}

		lastErr = err
		if !catalog.IsRetryable(err) || attempt == attempts {
			break
		}

		logger.Warn("Transient reconciliation failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
