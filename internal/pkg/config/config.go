package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Resolver ResolverConfig
	Notify   NotifyConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=family_budget"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type ResolverConfig struct {
	// SnapshotTTL is the freshness window of a cached identity snapshot.
	SnapshotTTL time.Duration `env:"RESOLVER_SNAPSHOT_TTL, default=15s"`
	// InviteCheckInterval throttles how often one user's pending-invitation
	// check may hit the store.
	InviteCheckInterval time.Duration `env:"RESOLVER_INVITE_CHECK_INTERVAL, default=30s"`
	// OrphanSweepInterval is the period of the background invitation sweep.
	OrphanSweepInterval time.Duration `env:"RESOLVER_ORPHAN_SWEEP_INTERVAL, default=1h"`
}

type NotifyConfig struct {
	// WebhookURL is the external delivery gateway for invitation notices.
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL, default=http://localhost:9090/notify"`
	Workers    int    `env:"NOTIFY_WORKERS,     default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
