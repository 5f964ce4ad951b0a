package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ledgercache "github.com/radieske/prediction-ledger/internal/ledger-service/cache"
	lhttp "github.com/radieske/prediction-ledger/internal/ledger-service/http"
	"github.com/radieske/prediction-ledger/internal/ledger-service/ledger"
	"github.com/radieske/prediction-ledger/internal/ledger-service/producer"
	"github.com/radieske/prediction-ledger/internal/ledger-service/repo"
	"github.com/radieske/prediction-ledger/internal/ledger-service/ws"
	"github.com/radieske/prediction-ledger/internal/shared/cache"
	"github.com/radieske/prediction-ledger/internal/shared/config"
	"github.com/radieske/prediction-ledger/internal/shared/db"
	"github.com/radieske/prediction-ledger/internal/shared/kafka"
	"github.com/radieske/prediction-ledger/internal/shared/logger"
	"github.com/radieske/prediction-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres + schema
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	store := repo.NewStore(pg)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}
	log.Info("postgres connected")

	// Redis: cache de leitura + canal de encerramentos
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// Kafka: um writer por tópico
	stakeWriter := kafka.NewWriter(cfg.Brokers(), cfg.TopicStakePlaced)
	defer stakeWriter.Close()
	settledWriter := kafka.NewWriter(cfg.Brokers(), cfg.TopicEventSettled)
	defer settledWriter.Close()

	svc := ledger.NewService(log,
		store,
		ledgercache.New(redisClient, cfg.CacheTTL),
		producer.NewKafkaPublisher(stakeWriter, settledWriter),
	)

	// Feed de resultados via WebSocket
	hub := ws.NewHub(log, lhttp.OriginChecker(cfg.AllowedOrigins))
	if err := ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisSettlementChannel, hub); err != nil {
		log.Fatal("redis subscribe", zap.Error(err), zap.String("channel", cfg.RedisSettlementChannel))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	api := lhttp.NewServer(log, svc, cfg.AllowedOrigins, hub)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("ledger-service stopped")
}
