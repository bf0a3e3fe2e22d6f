package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lamnguyendev/keymart-backend/api"
	"github.com/lamnguyendev/keymart-backend/api/controllers"
	"github.com/lamnguyendev/keymart-backend/api/controllers/webhooks"
	"github.com/lamnguyendev/keymart-backend/api/routes"
	"github.com/lamnguyendev/keymart-backend/internal/cart"
	"github.com/lamnguyendev/keymart-backend/internal/cron"
	"github.com/lamnguyendev/keymart-backend/internal/inventory"
	"github.com/lamnguyendev/keymart-backend/internal/orders"
	"github.com/lamnguyendev/keymart-backend/internal/payments"
	"github.com/lamnguyendev/keymart-backend/pkg/auth"
	"github.com/lamnguyendev/keymart-backend/pkg/config"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/metrics"
	"github.com/lamnguyendev/keymart-backend/pkg/migrate"
	"github.com/lamnguyendev/keymart-backend/pkg/payos"
	"github.com/lamnguyendev/keymart-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("keymart-api", "info").Fatal(err, "load config")
	}

	log := logger.New("keymart-api", cfg.App.LogLevel)

	client, err := db.New(cfg.DB.DSN())
	if err != nil {
		log.Fatal(err, "connect database")
	}
	defer client.Close()

	sqlDB, err := client.Gorm().DB()
	if err != nil {
		log.Fatal(err, "unwrap database handle")
	}
	if err := migrate.MaybeRunDev(sqlDB, cfg.IsDev(), log); err != nil {
		log.Fatal(err, "run migrations")
	}

	rdb := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(registry)

	gateway := payos.NewClient(cfg.PayOS.BaseURL, cfg.PayOS.ClientID, cfg.PayOS.APIKey, cfg.PayOS.ChecksumKey)
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	invSvc := inventory.NewService()
	cartSvc := cart.NewService(client)
	orderSvc := orders.NewService(client, invSvc, gateway, cfg.PayOS)
	reconciler := payments.NewReconciler(client, invSvc, gateway, payments.NewIdempotencyGuard(rdb))
	cleanup := cron.NewOrderCleanup(client, cfg.Cleanup.MaxAge, cfg.Cleanup.Interval, cronMetrics)

	handler := routes.New(routes.Controllers{
		Health: controllers.NewHealthController(client, rdb),
		Cart:   controllers.NewCartController(cartSvc),
		Orders: controllers.NewOrdersController(orderSvc, cleanup),
		PayOS:  webhooks.NewPayOSController(reconciler),
	}, issuer, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.App.Port, handler, log)
	if err := server.Run(log.Attach(ctx)); err != nil {
		log.Fatal(err, "http server stopped")
	}
}
