package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	JWTSecret    string `env:"JWT_SECRET,required"`
	Port         int    `env:"PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv       string `env:"APP_ENV" envDefault:"production"`
	JWTExpiryMin int    `env:"JWT_EXPIRY_MIN" envDefault:"480"`

	// Bounded timeout for every ledger store call.
	StoreTimeoutMS int `env:"STORE_TIMEOUT_MS" envDefault:"5000"`

	SalesServiceURL string `env:"SALES_SERVICE_URL" envDefault:"http://mock-sales:8081"`
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"kafka:9092"`
	AuditTopic      string `env:"AUDIT_TOPIC" envDefault:"ledger.activity"`
	OutboxPollMS    int    `env:"OUTBOX_POLL_MS" envDefault:"1000"`
	OutboxBatchSize int    `env:"OUTBOX_BATCH_SIZE" envDefault:"10"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
