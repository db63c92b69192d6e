package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// InsecureSessionSecret is the built-in signing secret. It is only accepted
// when IM_ENV=development.
const InsecureSessionSecret = "super_secret_key"

type Config struct {
	Addr            string        `yaml:"addr"`
	DatabasePath    string        `yaml:"database_path"`
	SessionSecret   string        `yaml:"session_secret"`
	APITimeout      time.Duration `yaml:"timeout"`
	SessionDuration time.Duration `yaml:"session_duration"`
	SweepInterval   time.Duration `yaml:"session_sweep_interval"`
	CookieName      string        `yaml:"cookie_name"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LogLevel        string        `yaml:"log_level"`
}

// LoadConfig builds the configuration from defaults, an optional .env file,
// IM_* environment variables and finally the YAML file at path (if any).
func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            getEnv("IM_ADDR", ":8080"),
		DatabasePath:    getEnv("IM_DATABASE_PATH", "interventions.db"),
		SessionSecret:   getEnv("IM_SESSION_SECRET", InsecureSessionSecret),
		APITimeout:      getEnvDuration("IM_TIMEOUT", 15*time.Second),
		SessionDuration: getEnvDuration("IM_SESSION_DURATION", 12*time.Hour),
		SweepInterval:   getEnvDuration("IM_SESSION_SWEEP_INTERVAL", 10*time.Minute),
		CookieName:      getEnv("IM_COOKIE_NAME", "im_session"),
		CookieSecure:    getEnvBool("IM_COOKIE_SECURE", false),
		LoginRateLimit:  getEnvInt("IM_LOGIN_RATE_LIMIT", 20),
		LogLevel:        getEnv("IM_LOG_LEVEL", "info"),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the loaded values. The insecure default secret is rejected
// unless IM_ENV is "development".
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session_secret is required"))
	} else if c.SessionSecret == InsecureSessionSecret && !IsDevelopment() {
		errs = append(errs, errors.New("session_secret uses the insecure default; set IM_SESSION_SECRET or IM_ENV=development"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, errors.New("session_duration must be positive"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("session_sweep_interval must not be negative"))
	}
	if c.CookieName == "" {
		c.CookieName = "im_session"
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("login_rate_limit must not be negative"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether IM_ENV selects the development environment.
func IsDevelopment() bool {
	return strings.EqualFold(os.Getenv("IM_ENV"), "development")
}

// ParseLogLevel maps the configured level name onto slog. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
