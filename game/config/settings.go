package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/wricardo/mcp-training/concentration/game/store"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds the process configuration. Values come from the
// environment (after an optional .env file) and may be overridden by
// command-line flags.
type Settings struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port int    `env:"PORT" envDefault:"8080"`

	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	SessionsDir string `env:"SESSIONS_DIR"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"static"`

	// Best score store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StoreDSN    string `env:"STORE_DSN"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Debug      bool          `env:"DEBUG"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// Load parses Settings from the environment
func Load() (*Settings, error) {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &s, nil
}

// Validate rejects settings the server cannot start with
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	if !slices.Contains(store.Drivers(), strings.ToLower(s.StoreDriver)) {
		return fmt.Errorf("%w: store driver %q (want one of %s)",
			ErrInvalidSettings, s.StoreDriver, strings.Join(store.Drivers(), ", "))
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive, got %s", ErrInvalidSettings, s.SessionTTL)
	}
	if s.DataDir == "" {
		return fmt.Errorf("%w: data dir is required", ErrInvalidSettings)
	}
	if strings.EqualFold(s.StoreDriver, store.DriverRedis) && s.StoreDSN == "" && s.RedisAddr == "" {
		return fmt.Errorf("%w: redis store needs REDIS_ADDR or STORE_DSN", ErrInvalidSettings)
	}
	return nil
}

// Addr returns the HTTP listen address
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SessionsPath returns the directory holding session snapshots
func (s *Settings) SessionsPath() string {
	if s.SessionsDir != "" {
		return s.SessionsDir
	}
	return filepath.Join(s.DataDir, "sessions")
}

// StoreTarget returns the dsn handed to store.Open for the configured
// driver. An explicit StoreDSN always wins.
func (s *Settings) StoreTarget() string {
	if s.StoreDSN != "" {
		return s.StoreDSN
	}
	switch strings.ToLower(s.StoreDriver) {
	case store.DriverFile:
		return filepath.Join(s.DataDir, "best_score.json")
	case store.DriverSQLite:
		return filepath.Join(s.DataDir, "concentration.db")
	case store.DriverRedis:
		return s.RedisAddr
	default:
		return ""
	}
}
