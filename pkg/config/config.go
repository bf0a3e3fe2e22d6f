package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lamnguyendev/keymart-backend/pkg/env"
)

type AppConfig struct {
	Env      string `envconfig:"ENV" default:"dev"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"keymart"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type PayOSConfig struct {
	BaseURL      string        `envconfig:"PAYOS_BASE_URL" default:"https://api-merchant.payos.vn"`
	ClientID     string        `envconfig:"PAYOS_CLIENT_ID" required:"true"`
	APIKey       string        `envconfig:"PAYOS_API_KEY" required:"true"`
	ChecksumKey  string        `envconfig:"PAYOS_CHECKSUM_KEY" required:"true"`
	ReturnURL    string        `envconfig:"PAYOS_RETURN_URL" default:"http://localhost:3000/payment/return"`
	CancelURL    string        `envconfig:"PAYOS_CANCEL_URL" default:"http://localhost:3000/payment/cancel"`
	ExpireWindow time.Duration `envconfig:"PAYOS_EXPIRE_WINDOW" default:"15m"`
}

type CleanupConfig struct {
	Interval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"60s"`
	MaxAge   time.Duration `envconfig:"CLEANUP_MAX_AGE" default:"15m"`
	LockTTL  time.Duration `envconfig:"CLEANUP_LOCK_TTL" default:"55s"`
}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	PayOS   PayOSConfig
	Cleanup CleanupConfig
}

// Load reads configuration from the environment with the KEYMART_ prefix.
// A local .env file is honored outside production; missing is fine.
func Load() (*Config, error) {
	if env.Get("KEYMART_ENV", "dev") != "prod" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("KEYMART", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev" || c.App.Env == "local"
}
