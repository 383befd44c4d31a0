package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/favorlink/backend/internal/config"
	"github.com/favorlink/backend/internal/db"
	"github.com/favorlink/backend/internal/events"
	"github.com/favorlink/backend/internal/gateway"
	"github.com/favorlink/backend/internal/repositories"
	"github.com/favorlink/backend/internal/scheduler"
	"github.com/favorlink/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	walletRepo := repositories.NewWalletRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	gw := gateway.NewHTTPGateway(cfg.GatewayBaseURL, log)
	ledger := services.NewLedgerService(escrowRepo, walletRepo, auditRepo, gw, publisher, cfg, log)

	autoRelease := scheduler.NewAutoRelease(ledger, cfg.AutoReleaseInterval, cfg.AutoReleaseBatch, log)
	autoRelease.Start(ctx)

	log.Info("worker started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down worker")
	autoRelease.Stop()
	cancel()
}
