package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/internal/settlement-notifier/consumer"
	"github.com/radieske/prediction-ledger/internal/settlement-notifier/pubsub"
	"github.com/radieske/prediction-ledger/internal/shared/cache"
	"github.com/radieske/prediction-ledger/internal/shared/config"
	"github.com/radieske/prediction-ledger/internal/shared/kafka"
	"github.com/radieske/prediction-ledger/internal/shared/logger"
	"github.com/radieske/prediction-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-notifier"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group próprio: cada réplica recebe um subconjunto das partições
	reader := kafka.NewReader(cfg.Brokers(), cfg.TopicEventSettled, "settlement-notifier")
	defer reader.Close()
	// DLQ opcional: sem tópico, mensagens malformadas são descartadas
	var dlq kafka.MessageWriter
	if cfg.TopicEventSettledDLQ != "" {
		w := kafka.NewWriter(cfg.Brokers(), cfg.TopicEventSettledDLQ)
		defer w.Close()
		dlq = w
	}

	// Métricas Prometheus do relay
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "notifier_messages_consumed_total", Help: "mensagens consumidas"})
	relayed := prometheus.NewCounter(prometheus.CounterOpts{Name: "notifier_messages_relayed_total", Help: "mensagens publicadas no Redis"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "notifier_messages_dlq_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notifier_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, relayed, dead, errorsBy)

	relay := &consumer.Relay{
		Log:         log,
		Reader:      reader,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		DLQ:         dlq,
		Channel:     cfg.RedisSettlementChannel,
		Attempts:    3,
		Backoff:     250 * time.Millisecond,
		OnConsumed:  func() { consumed.Inc() },
		OnRelayed:   func() { relayed.Inc() },
		OnDLQ:       func() { dead.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-notifier started",
		zap.String("topic", cfg.TopicEventSettled),
		zap.String("channel", cfg.RedisSettlementChannel),
	)
	if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("relay stopped with error", zap.Error(err))
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-notifier stopped")
}
