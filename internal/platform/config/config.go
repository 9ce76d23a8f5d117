package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	s "inclusao/pkg/string"
)

// Backend selects where registrations, admins and credentials live.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendSupabase Backend = "supabase"
)

// Development secrets from the envDefault tags below. Production refuses them.
const (
	devAuthSigningKey = "dev-secret-key-change-in-production"
	devCSRFKey        = "dev-csrf-key-32-bytes-long-000000"
)

// Server captures every setting of cmd/server. Defaults match a local
// development run with the in-memory backend.
type Server struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Backend        Backend       `env:"BACKEND" envDefault:"memory"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"inclusao.db"`
	RedisURL       string        `env:"REDIS_URL"`
	SupabaseURL    string        `env:"SUPABASE_URL"`
	SupabaseAnon   string        `env:"SUPABASE_ANON_KEY"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	AuthSigningKey string        `env:"AUTH_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	AuthTokenTTL   time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"2h"`
	SeedAdminEmail string        `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPass  string        `env:"SEED_ADMIN_PASSWORD"`

	Session Session

	RedirectDelay  time.Duration `env:"REDIRECT_DELAY" envDefault:"3s"`
	GroupInviteURL string        `env:"GROUP_INVITE_URL" envDefault:"https://chat.whatsapp.com/"`
	CSRFKey        string        `env:"CSRF_KEY" envDefault:"dev-csrf-key-32-bytes-long-000000"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	TimeZone       string        `env:"TIME_ZONE" envDefault:"America/Sao_Paulo"`
	DefaultTheme   string        `env:"DEFAULT_THEME" envDefault:"light"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Session holds the admin session expiry settings.
type Session struct {
	MaxAge        time.Duration `env:"SESSION_MAX_AGE" envDefault:"1h"`
	CheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"60s"`
}

// Load parses the environment and validates cross-field constraints.
func Load() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.TrustedProxies = s.DedupeAndTrim(cfg.TrustedProxies)
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for backend %q", c.Backend)
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnon == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Session.MaxAge <= 0 || c.Session.CheckInterval <= 0 {
		return fmt.Errorf("session max age and check interval must be positive")
	}
	if len(c.CSRFKey) < 32 {
		return fmt.Errorf("CSRF_KEY must be at least 32 bytes")
	}
	if c.DefaultTheme != "light" && c.DefaultTheme != "dark" {
		return fmt.Errorf("DEFAULT_THEME must be light or dark")
	}
	if c.IsProduction() {
		if c.AuthSigningKey == devAuthSigningKey {
			return fmt.Errorf("AUTH_SIGNING_KEY must be set in production")
		}
		if c.CSRFKey == devCSRFKey {
			return fmt.Errorf("CSRF_KEY must be set in production")
		}
	}
	return nil
}

// IsProduction reports whether the server runs with production hardening.
func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location resolves TimeZone, falling back to UTC when the zone database is missing.
func (c Server) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c Server) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
