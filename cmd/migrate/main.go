package main

import (
	"os"

	"github.com/lamnguyendev/keymart-backend/pkg/config"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/migrate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("keymart-migrate", "info").Fatal(err, "load config")
	}

	log := logger.New("keymart-migrate", cfg.App.LogLevel)

	client, err := db.New(cfg.DB.DSN())
	if err != nil {
		log.Fatal(err, "connect database")
	}
	defer client.Close()

	sqlDB, err := client.Gorm().DB()
	if err != nil {
		log.Fatal(err, "unwrap database handle")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		if err := migrate.Up(sqlDB); err != nil {
			log.Fatal(err, "apply migrations")
		}
		log.Info("migrations applied")
	case "status":
		if err := migrate.Status(sqlDB); err != nil {
			log.Fatal(err, "migration status")
		}
	default:
		log.Fatal(nil, "unknown command: "+command)
	}
}
