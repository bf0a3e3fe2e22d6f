package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lamnguyendev/keymart-backend/internal/cron"
	"github.com/lamnguyendev/keymart-backend/pkg/config"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/metrics"
	"github.com/lamnguyendev/keymart-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("keymart-cron", "info").Fatal(err, "load config")
	}

	log := logger.New("keymart-cron", cfg.App.LogLevel)

	client, err := db.New(cfg.DB.DSN())
	if err != nil {
		log.Fatal(err, "connect database")
	}
	defer client.Close()

	rdb := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(registry)

	jobs := cron.NewRegistry()
	jobs.Register(cron.NewOrderCleanup(client, cfg.Cleanup.MaxAge, cfg.Cleanup.Interval, cronMetrics))

	service := cron.NewService(jobs, cron.NewRedisLock(rdb), cronMetrics, cfg.Cleanup.LockTTL, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("cron worker started")
	service.Run(log.Attach(ctx))
	log.Info("cron worker stopped")
}
