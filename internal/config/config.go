package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"planty-of-food/internal/repository/mysql"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Env      string `envconfig:"ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver         string `envconfig:"DB_DRIVER" default:"mysql"` // mysql | memory
	DBHost           string `envconfig:"DB_HOST" default:"localhost"`
	DBPort           string `envconfig:"DB_PORT" default:"3306"`
	DBUser           string `envconfig:"DB_USER" default:"root"`
	DBPass           string `envconfig:"DB_PASS" default:""`
	DBName           string `envconfig:"DB_NAME" default:"planty"`
	DBConnectRetries int    `envconfig:"DB_CONNECT_RETRIES" default:"10"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:""`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	ProductCacheTTL time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"5m"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"order-topic"`

	Timezone string `envconfig:"TIMEZONE" default:"UTC"`

	RateLimit float64 `envconfig:"RATE_LIMIT" default:"20"`
	RateBurst int     `envconfig:"RATE_BURST" default:"40"`

	// parsed by validate
	level    zerolog.Level
	location *time.Location
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine; real environment variables still apply
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or memory, got %q", c.DBDriver)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	c.location = loc
	c.level = level
	return nil
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

// Location is the parsed TIMEZONE, UTC for a Config not built by Load.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Level is the parsed LOG_LEVEL.
func (c *Config) Level() zerolog.Level {
	return c.level
}

func (c *Config) MySQL() mysql.ConnConfig {
	return mysql.ConnConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPass,
		Name:     c.DBName,
	}
}

func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
