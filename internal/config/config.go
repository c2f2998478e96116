package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
)

// devSigningKey signs tokens in development when JWT_SIGNING_KEY is unset.
const devSigningKey = "frontdesk-development-signing-key"

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	BackendURL       string        `mapstructure:"BACKEND_URL"`
	BackendTimeout   time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	DoctorCacheTTL   time.Duration `mapstructure:"DOCTOR_CACHE_TTL"`
	JWTSigningKey    string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	JWTAudience      string        `mapstructure:"JWT_AUDIENCE"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	ClinicTimezone   string        `mapstructure:"CLINIC_TIMEZONE"`
	ClinicOpen       string        `mapstructure:"CLINIC_OPEN"`
	ClinicClose      string        `mapstructure:"CLINIC_CLOSE"`
	ScheduleSlotStep time.Duration `mapstructure:"SCHEDULE_SLOT_STEP"`
	SearchDebounce   time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	SessionFile      string        `mapstructure:"SESSION_FILE"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxBodySize      string        `mapstructure:"MAX_BODY_SIZE"`
	ReminderLead     time.Duration `mapstructure:"REMINDER_LEAD"`
	ReminderInterval time.Duration `mapstructure:"REMINDER_INTERVAL"`
}

var keys = []string{
	"PORT", "ENV", "BACKEND_URL", "BACKEND_TIMEOUT", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL", "DOCTOR_CACHE_TTL",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE", "CORS_ORIGINS",
	"CLINIC_TIMEZONE", "CLINIC_OPEN", "CLINIC_CLOSE", "SCHEDULE_SLOT_STEP",
	"SEARCH_DEBOUNCE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SESSION_FILE",
	"REQUEST_TIMEOUT", "MAX_BODY_SIZE", "REMINDER_LEAD", "REMINDER_INTERVAL",
}

// Load reads .env (if present) and the environment. It does not validate;
// each command checks what it needs.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_URL", "http://localhost:8000/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DOCTOR_CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("CLINIC_OPEN", "08:00")
	v.SetDefault("CLINIC_CLOSE", "20:00")
	v.SetDefault("SCHEDULE_SLOT_STEP", "30m")
	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MAX_BODY_SIZE", "64K")
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("REMINDER_INTERVAL", "1m")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be development, staging or production, got %q", c.Env)
	}
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required outside development")
	}
	if c.IsProduction() && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}

	if _, err := c.Resolver(); err != nil {
		return err
	}
	if c.ScheduleSlotStep <= 0 || c.ScheduleSlotStep%scheduling.SlotStep != 0 {
		return fmt.Errorf("SCHEDULE_SLOT_STEP must be a positive multiple of %s", scheduling.SlotStep)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	return nil
}

// ValidateBackend adds the checks the reference backend needs.
func (c *Config) ValidateBackend() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 || c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be at least DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	if c.ReminderLead < 0 || c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_LEAD must not be negative and REMINDER_INTERVAL must be positive")
	}
	return nil
}

// Resolver builds the clinic clock from CLINIC_TIMEZONE, CLINIC_OPEN and
// CLINIC_CLOSE.
func (c *Config) Resolver() (*scheduling.Resolver, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	open, err := scheduling.ParseTimeOfDay(c.ClinicOpen)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_OPEN: %w", err)
	}
	closing, err := scheduling.ParseTimeOfDay(c.ClinicClose)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_CLOSE: %w", err)
	}
	if open >= closing {
		return nil, fmt.Errorf("CLINIC_OPEN (%s) must be before CLINIC_CLOSE (%s)", open, closing)
	}
	if !open.Aligned(scheduling.SlotStep) || !closing.Aligned(scheduling.SlotStep) {
		return nil, fmt.Errorf("clinic hours must fall on %s boundaries", scheduling.SlotStep)
	}
	r := scheduling.NewResolver(loc)
	r.Open, r.Close = open, closing
	return r, nil
}

// JWT returns the token settings. Development falls back to a fixed key.
func (c *Config) JWT() auth.JWTConfig {
	key := c.JWTSigningKey
	if key == "" && c.IsDev() {
		key = devSigningKey
	}
	return auth.JWTConfig{Issuer: c.JWTIssuer, Audience: c.JWTAudience, SigningKey: []byte(key)}
}
