package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unitbook/internal/api"
	"unitbook/internal/audit"
	"unitbook/internal/cache"
	"unitbook/internal/config"
	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/events"
	"unitbook/internal/logging"
	"unitbook/internal/metrics"
	"unitbook/internal/scheduler"
	"unitbook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	availabilityCache := buildAvailabilityCache(cfg, redisClient, logger)

	bus := events.NewEventBus()
	events.SubscribeAuditLog(bus, logger)

	var auditPublisher domain.AuditPublisher
	if kafkaPublisher := initKafka(cfg, logger); kafkaPublisher != nil {
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	eventService := service.NewEventService(db, bus, auditPublisher, logger)
	retry := service.DefaultRetryPolicy()

	bookingService := service.NewBookingService(db, availabilityCache, eventService, retry, cfg.PaymentWindow(), logger)
	paymentService := service.NewPaymentService(db, availabilityCache, eventService, retry, logger)
	unitService := service.NewUnitService(db, availabilityCache, eventService, logger)
	userService := service.NewUserService(db, eventService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := scheduler.NewPaymentChecker(db, availabilityCache, eventService, retry,
		cfg.PaymentWindow(), cfg.Booking.SweepInterval, logger)
	go checker.Start(ctx)

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, paymentService, unitService, userService, eventService, logger)
	return startServer(ctx, httpServer, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.ForComponent(baseLogger, "api-main")

	return cfg, &logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildAvailabilityCache собирает кэш доступности: redis с памятью на подхвате,
// либо только память, если redis не сконфигурирован.
func buildAvailabilityCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.AvailabilityCache {
	memory := cache.NewMemoryAvailabilityCache(cfg.Booking.CacheTTL)
	if redisClient == nil {
		return memory
	}
	primary := cache.NewRedisAvailabilityCache(redisClient, cfg.Booking.CacheTTL)
	return cache.NewFailoverAvailabilityCache(primary, memory, logger)
}

func initKafka(cfg *config.Config, logger *zerolog.Logger) *audit.KafkaPublisher {
	if !cfg.Kafka.Enabled {
		return nil
	}

	publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("kafka init failed, continuing without audit publishing")
		return nil
	}

	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka connected")
	return publisher
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
