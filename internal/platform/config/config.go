// Package config builds the typed runtime configuration from environment
// variables. A .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server       Server
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Trust        TrustConfig
	Leads        LeadConfig
	Commission   CommissionConfig
	RateLimit    RateLimitConfig
	Integrations IntegrationConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	LogFormat     string
	AdminToken    string
	SecretKey     string
	PublicBaseURL string
	// CORSOrigins lists browser origins allowed to call the public API.
	// Empty disables CORS headers.
	CORSOrigins []string
}

// IsProduction reports whether the process runs with production safeguards.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig selects Postgres persistence. An empty URL keeps every store in memory.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// RedisConfig selects the Redis cache and counters. An empty URL keeps them in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the broker-backed event publisher. No brokers means events are logged only.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
	AsyncBuffer       int
}

type TrustConfig struct {
	ScoreMin                 int
	ManualReviewThreshold    int
	AgentTimeout             time.Duration
	AgentRetries             int
	AgentRPS                 float64
	BreakerFailureThreshold  int
	BreakerCooldown          time.Duration
	ContributionMinHoursYear float64
}

type LeadConfig struct {
	URLExpiry         time.Duration
	AttributionWindow time.Duration
	CacheTTL          time.Duration
}

type CommissionConfig struct {
	RateMin     float64
	RateMax     float64
	RateDefault float64
}

type RateLimitConfig struct {
	PerMinute int
	PerHour   int
	Disabled  bool
}

// IntegrationConfig holds credentials for outbound verification providers.
// Empty keys disable the corresponding live adapter.
type IntegrationConfig struct {
	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	AnthropicAPIKey  string
	AnthropicModel   string
	SignalsBaseURL   string
	SignalsAPIKey    string
}

const devSecretKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	var errs []error
	e := &env{errs: &errs}

	cfg := Config{
		Server: Server{
			Addr:          e.str("OCTOPUS_ADDR", ":8080"),
			Environment:   e.str("ENVIRONMENT", "development"),
			LogLevel:      e.str("LOG_LEVEL", "info"),
			LogFormat:     e.str("LOG_FORMAT", ""),
			AdminToken:    e.str("ADMIN_TOKEN", ""),
			SecretKey:     e.str("SECRET_KEY", devSecretKey),
			PublicBaseURL: e.str("PUBLIC_BASE_URL", "http://localhost:8080"),
			CORSOrigins:   e.list("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxConns:        int32(e.integer("DATABASE_MAX_CONNS", 10)),
			MinConns:        int32(e.integer("DATABASE_MIN_CONNS", 1)),
			MaxConnLifetime: e.duration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           e.list("KAFKA_BROKERS"),
			Topic:             e.str("KAFKA_EVENTS_TOPIC", "octopus.events"),
			Partitions:        int32(e.integer("KAFKA_EVENTS_PARTITIONS", 3)),
			ReplicationFactor: int16(e.integer("KAFKA_EVENTS_REPLICATION", 1)),
			AsyncBuffer:       e.integer("KAFKA_ASYNC_BUFFER", 1024),
		},
		Trust: TrustConfig{
			ScoreMin:                 e.integer("TRUST_SCORE_MIN", 60),
			ManualReviewThreshold:    e.integer("MANUAL_REVIEW_THRESHOLD", 70),
			AgentTimeout:             e.duration("TRUST_AGENT_TIMEOUT", 10*time.Second),
			AgentRetries:             e.integer("TRUST_AGENT_RETRIES", 2),
			AgentRPS:                 e.float("TRUST_AGENT_RPS", 5),
			BreakerFailureThreshold:  e.integer("TRUST_BREAKER_FAILURES", 5),
			BreakerCooldown:          e.duration("TRUST_BREAKER_COOLDOWN", 30*time.Second),
			ContributionMinHoursYear: e.float("CONTRIBUTION_MIN_HOURS_YEAR", 12),
		},
		Leads: LeadConfig{
			URLExpiry:         time.Duration(e.integer("LEAD_URL_EXPIRY_HOURS", 72)) * time.Hour,
			AttributionWindow: time.Duration(e.integer("LEAD_ATTRIBUTION_WINDOW_DAYS", 30)) * 24 * time.Hour,
			CacheTTL:          e.duration("ATTRIBUTION_CACHE_TTL", 0),
		},
		Commission: CommissionConfig{
			RateMin:     e.float("COMMISSION_RATE_MIN", 0.03),
			RateMax:     e.float("COMMISSION_RATE_MAX", 0.07),
			RateDefault: e.float("COMMISSION_RATE_DEFAULT", 0.05),
		},
		RateLimit: RateLimitConfig{
			PerMinute: e.integer("RATE_LIMIT_PER_MINUTE", 60),
			PerHour:   e.integer("RATE_LIMIT_PER_HOUR", 1000),
			Disabled:  e.boolean("RATE_LIMIT_DISABLED", false),
		},
		Integrations: IntegrationConfig{
			FirecrawlAPIKey:  e.str("FIRECRAWL_API_KEY", ""),
			FirecrawlBaseURL: e.str("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
			AnthropicAPIKey:  e.str("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   e.str("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			SignalsBaseURL:   e.str("SIGNALS_BASE_URL", ""),
			SignalsAPIKey:    e.str("SIGNALS_API_KEY", ""),
		},
	}
	if cfg.Leads.CacheTTL == 0 {
		cfg.Leads.CacheTTL = cfg.Leads.AttributionWindow
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = "text"
		if cfg.Server.IsProduction() {
			cfg.Server.LogFormat = "json"
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	t := c.Trust
	if t.ScoreMin < 0 || t.ManualReviewThreshold > 100 || t.ScoreMin > t.ManualReviewThreshold {
		errs = append(errs, fmt.Errorf("trust thresholds must satisfy 0 <= TRUST_SCORE_MIN (%d) <= MANUAL_REVIEW_THRESHOLD (%d) <= 100",
			t.ScoreMin, t.ManualReviewThreshold))
	}
	if t.AgentTimeout <= 0 {
		errs = append(errs, errors.New("TRUST_AGENT_TIMEOUT must be positive"))
	}
	if t.AgentRetries < 0 {
		errs = append(errs, errors.New("TRUST_AGENT_RETRIES must not be negative"))
	}
	cm := c.Commission
	if cm.RateMin <= 0 || cm.RateMin > cm.RateMax || cm.RateDefault < cm.RateMin || cm.RateDefault > cm.RateMax {
		errs = append(errs, fmt.Errorf("commission rates must satisfy 0 < min (%.2f) <= default (%.2f) <= max (%.2f)",
			cm.RateMin, cm.RateDefault, cm.RateMax))
	}
	if c.Leads.URLExpiry <= 0 || c.Leads.AttributionWindow <= 0 {
		errs = append(errs, errors.New("lead URL expiry and attribution window must be positive"))
	}
	if c.Server.IsProduction() {
		if c.Server.SecretKey == devSecretKey || len(c.Server.SecretKey) < 32 {
			errs = append(errs, errors.New("SECRET_KEY must be set to at least 32 bytes in production"))
		}
		if c.Server.AdminToken == "" {
			errs = append(errs, errors.New("ADMIN_TOKEN must be set in production"))
		}
	}
	return errors.Join(errs...)
}

// env collects parse errors so every bad variable is reported at once.
type env struct {
	errs *[]error
}

func (e *env) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) list(key string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *env) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (e *env) float(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return def
	}
	return v
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return v
}

func (e *env) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return def
	}
	return v
}
