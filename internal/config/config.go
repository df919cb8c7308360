package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config/config.yaml"
	defaultQuota      = 200

	// quotaUnset marks a JSearch quota the file did not set; 0 is a real
	// value that disables the provider.
	quotaUnset = math.MinInt
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BasePath        string        `yaml:"base_path"`
	PublicDir       string        `yaml:"public_dir"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"url"`
}

type SessionConfig struct {
	CookieTTL    time.Duration `yaml:"cookie_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type AuthConfig struct {
	ResetCodeTTL time.Duration `yaml:"reset_code_ttl"`
	Argon2       Argon2Config  `yaml:"argon2"`
	// nil means "expose outside prod"
	ExposeResetCode *bool `yaml:"expose_reset_code"`
}

// Argon2Config tunes password hashing; zero fields use the service defaults.
type Argon2Config struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

type JSearchConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Host        string        `yaml:"host"`
	Quota       int           `yaml:"quota"`
	QuotaWindow string        `yaml:"quota_window"` // monthly | daily
	Timeout     time.Duration `yaml:"timeout"`
}

type ArbeitnowConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	JSearch   JSearchConfig   `yaml:"jsearch"`
	Arbeitnow ArbeitnowConfig `yaml:"arbeitnow"`
	Email     EmailConfig     `yaml:"email"`
	CORS      struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		PerMinute int `yaml:"per_minute"`
	} `yaml:"rate_limit"`
}

// Load reads the YAML file named by JOBSPHERE_CONFIG (config/config.yaml by
// default), overlays .env and process environment, then fills defaults.
// A missing file is fine; a malformed one is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFile(getEnv("JOBSPHERE_CONFIG", defaultConfigPath))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file at path without defaults or env overrides.
// The JSearch quota holds quotaUnset until applyDefaults runs.
func loadFile(path string) (*Config, error) {
	cfg := &Config{JSearch: JSearchConfig{Quota: quotaUnset}}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/job-sphere"
	}
	c.Server.BasePath = "/" + strings.Trim(c.Server.BasePath, "/")
	if c.Server.PublicDir == "" {
		c.Server.PublicDir = "public"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/jobsphere.db"
	}
	if c.Session.CookieTTL == 0 {
		c.Session.CookieTTL = 7 * 24 * time.Hour
	}
	if c.Auth.ResetCodeTTL == 0 {
		c.Auth.ResetCodeTTL = 15 * time.Minute
	}
	if c.Auth.ExposeResetCode == nil {
		expose := c.Env != "prod"
		c.Auth.ExposeResetCode = &expose
	}
	if c.JSearch.BaseURL == "" {
		c.JSearch.BaseURL = "https://jsearch.p.rapidapi.com"
	}
	if c.JSearch.Host == "" {
		c.JSearch.Host = "jsearch.p.rapidapi.com"
	}
	if c.JSearch.Quota == quotaUnset {
		c.JSearch.Quota = defaultQuota
	}
	if c.JSearch.QuotaWindow == "" {
		c.JSearch.QuotaWindow = "monthly"
	}
	if c.JSearch.Timeout == 0 {
		c.JSearch.Timeout = 10 * time.Second
	}
	if c.Arbeitnow.URL == "" {
		c.Arbeitnow.URL = "https://www.arbeitnow.com/api/job-board-api"
	}
	if c.Arbeitnow.Timeout == 0 {
		c.Arbeitnow.Timeout = 10 * time.Second
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 30
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database url is required for driver %q", c.Database.Driver)
	}
	switch c.JSearch.QuotaWindow {
	case "monthly", "daily":
	default:
		return fmt.Errorf("unsupported jsearch quota window %q", c.JSearch.QuotaWindow)
	}
	if c.JSearch.Quota < 0 {
		return fmt.Errorf("jsearch quota must not be negative")
	}
	return nil
}

func (c *Config) IsProd() bool { return c.Env == "prod" }

func (c *Config) ResetCodeExposed() bool {
	return c.Auth.ExposeResetCode != nil && *c.Auth.ExposeResetCode
}

func applyEnv(c *Config) {
	c.Env = getEnv("ENV", c.Env)
	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("HTTP_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	c.Server.BasePath = getEnv("BASE_PATH", c.Server.BasePath)
	c.Server.PublicDir = getEnv("PUBLIC_DIR", c.Server.PublicDir)
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.JSearch.APIKey = getEnv("JSEARCH_API_KEY", c.JSearch.APIKey)
	c.JSearch.Host = getEnv("JSEARCH_HOST", c.JSearch.Host)
	c.JSearch.Quota = getIntEnv("JSEARCH_QUOTA", c.JSearch.Quota)
	c.Arbeitnow.URL = getEnv("ARBEITNOW_API_URL", c.Arbeitnow.URL)
	c.Email.SMTPHost = getEnv("SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getIntEnv("SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUser = getEnv("SMTP_USER", c.Email.SMTPUser)
	c.Email.SMTPPassword = getEnv("SMTP_PASSWORD", c.Email.SMTPPassword)
	c.Email.FromEmail = getEnv("SMTP_FROM", c.Email.FromEmail)
	c.RateLimit.PerMinute = getIntEnv("RATE_LIMIT_PER_MIN", c.RateLimit.PerMinute)
	if origins := splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		c.CORS.AllowedOrigins = origins
	}
	if v := strings.TrimSpace(os.Getenv("EXPOSE_RESET_CODE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.ExposeResetCode = &b
		}
	}
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
