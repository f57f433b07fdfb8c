package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/ki3lbix/Kuchnia/internal/api"
	"github.com/ki3lbix/Kuchnia/internal/config"
	"github.com/ki3lbix/Kuchnia/internal/database"
	"github.com/ki3lbix/Kuchnia/internal/models"
	"github.com/ki3lbix/Kuchnia/internal/services"
	"github.com/ki3lbix/Kuchnia/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("❌ server stopped with error")
	}
}

// run возвращает ошибку вместо выхода, чтобы отложенные Close успели отработать
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	setupLogger(cfg)

	log.Info().Str("database_url", redactURL(cfg.DatabaseURL)).Msg("📋 DATABASE_URL установлен")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Без БД движок не имеет смысла, в отличие от Redis и Kafka
	db, err := database.ConnectPostgres(cfg.DatabaseURL,
		database.WithMaxOpenConns(cfg.DBMaxOpenConns),
		database.WithSlowQueryThreshold(cfg.DBSlowQuery),
	)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection failed: %w", err)
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("✅ Database migrations completed")
	}

	health := map[string]api.Pinger{"postgres": api.PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})}

	// Redis опционален: без него запуски по одному плану не блокируются между инстансами
	var guard *api.PlanGuard
	if cfg.RedisURL != "" || len(cfg.RedisSentinelAddrs) > 0 {
		redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis недоступен, блокировка планов отключена")
		} else {
			defer database.CloseRedis(redisClient)
			redisUtil := utils.NewRedisClient(redisClient)
			guard = api.NewPlanGuard(redisUtil, cfg.PlanLockTTL)
			health["redis"] = redisUtil
		}
	} else {
		log.Warn().Msg("⚠️ REDIS_URL не установлен, блокировка планов отключена")
	}

	hub := api.NewHub()
	go hub.Run(ctx)

	publishers := services.MultiPublisher{hub}
	if brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		transport := api.NewKafkaTransport(cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		kafkaPublisher := api.NewKafkaPublisher(brokers, cfg.KafkaTopic, transport)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("✅ Kafka producer подключен")
	} else {
		log.Warn().Msg("⚠️ KAFKA_BROKERS не установлен, события только в WebSocket")
	}

	inventoryService := services.NewInventoryService(services.NewGormInventoryStore(db))
	inventoryService.SetEventPublisher(publishers)

	httpServer := newHTTPServer(cfg, db, inventoryService, guard, hub, health)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(api.LoggingInterceptor))
	api.RegisterInventoryServiceServer(grpcServer, api.NewInventoryGRPCServer(inventoryService, guard))

	errCh := make(chan error, 2)
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			errCh <- err
			return
		}
		log.Info().Str("port", cfg.GRPCPort).Msg("📡 gRPC Server starting")
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("🚀 Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("🛑 shutdown signal received")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("❌ server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️ HTTP shutdown")
	}
	grpcServer.GracefulStop()
	log.Info().Msg("✅ stopped")
	return serveErr
}

func newHTTPServer(cfg *config.Config, db *gorm.DB, inventory *services.InventoryService, guard *api.PlanGuard, hub *api.Hub, health map[string]api.Pinger) *http.Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Routes{
		Inventory:  api.NewInventoryController(inventory, services.NewReceivingService(db), guard),
		Production: api.NewProductionController(services.NewProductionService(db)),
		Hub:        hub,
		Health:     health,
	})

	return &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// redactURL прячет пароль из строки подключения
func redactURL(raw string) string {
	at := strings.Index(raw, "@")
	scheme := strings.Index(raw, "://")
	if at > 0 && scheme > 0 && scheme < at {
		return raw[:scheme+3] + "***@" + raw[at+1:]
	}
	return raw
}
