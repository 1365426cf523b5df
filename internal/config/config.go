// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	// StateBackend selects the lobby store.
	StateBackend string `envconfig:"STATE_BACKEND" default:"memory" validate:"oneof=memory redis postgres"`
	ChatBackend  string `envconfig:"CHAT_BACKEND" default:"memory" validate:"oneof=memory redis"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"lobbyhub" validate:"required"`

	PGHost     string `envconfig:"PG_HOST" default:"localhost"`
	PGPort     string `envconfig:"PG_PORT" default:"5432"`
	PGUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PGPassword string `envconfig:"POSTGRES_PASSWORD"`
	PGDatabase string `envconfig:"PG_DATABASE" default:"lobbyhub"`

	HostGracePeriod time.Duration `envconfig:"HOST_GRACE_PERIOD" default:"30s" validate:"gt=0"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"5s" validate:"gt=0"`

	// TokenExpireTime is a duration, or "never"/"0"/empty for tokens without expiry.
	TokenExpireTime string `envconfig:"TOKEN_EXPIRE_TIME"`
	// Optional raw ed25519 key files; a fresh pair is generated when unset.
	TokenPrivateKeyPath string `envconfig:"TOKEN_PRIVATE_KEY_PATH"`
	TokenPublicKeyPath  string `envconfig:"TOKEN_PUBLIC_KEY_PATH" validate:"required_with=TokenPrivateKeyPath"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	SendBuffer     int      `envconfig:"SEND_BUFFER" default:"32" validate:"gt=0"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv populates and validates a Config from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.TokenTTL(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TokenTTL parses TokenExpireTime. Zero means tokens never expire.
func (c Config) TokenTTL() (time.Duration, error) {
	switch strings.TrimSpace(c.TokenExpireTime) {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpireTime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
