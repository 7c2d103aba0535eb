package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures process level configuration. Each component validates the
// part it needs at startup; a missing required value is fatal for that component.
type Config struct {
	Server   Server
	Supabase Supabase
	Session  Session
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Pricing  Pricing
	Audit    Audit
	Log      Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"POINTER_ADDR" envDefault:":8080"`
	SiteURL         string        `env:"POINTER_SITE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"POINTER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"POINTER_REQUEST_TIMEOUT" envDefault:"30s"`
}

// Supabase holds the backend-as-a-service endpoint and its two credential tiers.
// The anon key is used for identity calls made on behalf of a browser, the
// service-role key only for server-side data reads.
type Supabase struct {
	URL            string        `env:"NEXT_PUBLIC_SUPABASE_URL"`
	ServerURL      string        `env:"SUPABASE_URL"`
	AnonKey        string        `env:"NEXT_PUBLIC_SUPABASE_ANON_KEY"`
	ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string        `env:"SUPABASE_JWT_SECRET"`
	HTTPTimeout    time.Duration `env:"SUPABASE_HTTP_TIMEOUT" envDefault:"10s"`
}

// Session configures the browser cookie and the per-browser provider registry.
type Session struct {
	Secret       string        `env:"SESSION_SECRET"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"pointer_browser"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	MaxAge       time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	MaxProviders int           `env:"SESSION_MAX_PROVIDERS" envDefault:"10000"`
	ProviderTTL  time.Duration `env:"SESSION_PROVIDER_TTL" envDefault:"30m"`
}

// RedisConfig is optional; an empty URL keeps sessions and events in memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig is optional; when set, pricing reads bypass the REST API.
type PostgresConfig struct {
	URL string `env:"DATABASE_URL"`
}

// KafkaConfig is optional; when set, audit events are also produced to Kafka.
type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"pointer.auth.audit"`
	Partitions int32    `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
}

// Pricing configures where the landing page reads plans from. An empty
// APIURL reads them in process.
type Pricing struct {
	APIURL string `env:"POINTER_PRICING_API_URL"`
}

// Audit sizes the audit pipeline.
type Audit struct {
	BufferSize      int           `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`
	MemoryCapacity  int           `env:"AUDIT_MEMORY_CAPACITY" envDefault:"10000"`
	BreakerCooldown time.Duration `env:"AUDIT_BREAKER_COOLDOWN" envDefault:"30s"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IdentityURL returns the service URL used for browser-tier identity calls.
func (s Supabase) IdentityURL() string {
	return strings.TrimRight(firstNonEmpty(s.URL, s.ServerURL), "/")
}

// DataURL returns the service URL used for server-tier data reads.
func (s Supabase) DataURL() string {
	return strings.TrimRight(firstNonEmpty(s.ServerURL, s.URL), "/")
}

// ValidateIdentity checks the values the identity client cannot start without.
func (s Supabase) ValidateIdentity() error {
	if s.IdentityURL() == "" {
		return errors.New("missing Supabase URL: set NEXT_PUBLIC_SUPABASE_URL (and optionally SUPABASE_URL for server usage)")
	}
	if s.AnonKey == "" {
		return errors.New("missing Supabase anon key: set NEXT_PUBLIC_SUPABASE_ANON_KEY")
	}
	return nil
}

// ValidatePricing checks the values the server-side pricing client needs.
func (s Supabase) ValidatePricing() error {
	if s.DataURL() == "" {
		return errors.New("missing Supabase URL: set SUPABASE_URL or NEXT_PUBLIC_SUPABASE_URL")
	}
	if s.ServiceRoleKey == "" {
		return errors.New("missing SUPABASE_SERVICE_ROLE_KEY environment variable for server-side Supabase client")
	}
	return nil
}

// Validate checks the cookie secret.
func (s Session) Validate() error {
	if len(s.Secret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}
	if s.CookieName == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
