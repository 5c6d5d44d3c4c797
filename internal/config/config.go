package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds every setting the server reads from the environment
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"sprintquest"`
	RedisURI      string `env:"REDIS_URI" envDefault:"localhost:6379"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	WorkItemsURL   string        `env:"CATALOG_WORK_ITEMS_URL" envDefault:"file://catalog/work_items.ndjson"`
	EventsURL      string        `env:"CATALOG_EVENTS_URL" envDefault:"file://catalog/events.ndjson"`
	CatalogTimeout time.Duration `env:"CATALOG_TIMEOUT" envDefault:"10s"`

	MaxTurns     int           `env:"MAX_TURNS" envDefault:"10"`
	HistorySize  int           `env:"HISTORY_SIZE" envDefault:"10"`
	IdleTimeout  time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"5m"`

	// NodeRole is "authoritative" (hosts sessions) or "replica" (mirrors them read-only)
	NodeRole string `env:"NODE_ROLE" envDefault:"authoritative"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Node roles
const (
	NodeAuthoritative = "authoritative"
	NodeReplica       = "replica"
)

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.NodeRole {
	case NodeAuthoritative, NodeReplica:
	default:
		return fmt.Errorf("invalid NODE_ROLE %q", c.NodeRole)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("MAX_TURNS must be positive, got %d", c.MaxTurns)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.HistorySize)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// Authoritative reports whether this node hosts sessions
func (c *Config) Authoritative() bool {
	return c.NodeRole == NodeAuthoritative
}

// RedisAddr strips the redis:// scheme go-redis does not expect in Addr
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURI, "redis://")
}

// NewLogger builds the production zap logger at the configured level
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
