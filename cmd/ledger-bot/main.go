package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/internal/ledger-bot/bot"
	"github.com/radieske/prediction-ledger/internal/ledger-bot/ledgerclient"
	"github.com/radieske/prediction-ledger/internal/shared/config"
	"github.com/radieske/prediction-ledger/internal/shared/logger"
	"github.com/radieske/prediction-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-bot"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if cfg.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	b, err := bot.NewBot(cfg.BotToken, ledgerclient.New(cfg.LedgerURL), cfg.WebAppURL, log)
	if err != nil {
		log.Fatal("bot init", zap.Error(err))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(context.Context) error { return nil })

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("ledger-bot started", zap.String("ledger_url", cfg.LedgerURL), zap.String("webapp_url", cfg.WebAppURL))
	if err := b.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("bot stopped with error", zap.Error(err))
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("ledger-bot stopped")
}
