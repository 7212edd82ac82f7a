package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-prediction/internal/weather"
)

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string

	// Provider selection and remote endpoints.
	DataProvider     string
	OpenMeteoBaseURL string
	OpenMeteoAPIKey  string
	NASAPowerBaseURL string
	HTTPTimeout      time.Duration

	Fetch weather.FetcherConfig

	// Cache backend.
	CacheBackend       string
	CacheDir           string
	CacheNamespace     string        // defaults to the provider name
	CacheTTL           time.Duration // redis expiry and memory read-through age (0 = none)
	CacheMaxAge        time.Duration // housekeeping prunes older entries (0 = disabled)
	CachePruneInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string

	Thresholds weather.Thresholds

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	cfg.EnvFileLoaded = godotenv.Load() == nil

	var err error
	defaults := weather.DefaultFetcherConfig()

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Env = getenvDefault("APP_ENV", "development")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.DataProvider = strings.ToLower(getenvDefault("DATA_PROVIDER", "synthetic"))
	cfg.OpenMeteoBaseURL = os.Getenv("OPENMETEO_BASE_URL")
	cfg.OpenMeteoAPIKey = os.Getenv("OPENMETEO_API_KEY")
	cfg.NASAPowerBaseURL = os.Getenv("NASAPOWER_BASE_URL")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.Fetch.YearsBack = getenvInt("YEARS_BACK", defaults.YearsBack)
	cfg.Fetch.Concurrency = getenvInt("FETCH_CONCURRENCY", defaults.Concurrency)
	cfg.Fetch.MaxRetries = getenvInt("FETCH_MAX_RETRIES", defaults.MaxRetries)
	if cfg.Fetch.SubmitInterval, err = getenvDuration("FETCH_SUBMIT_INTERVAL", defaults.SubmitInterval); err != nil {
		return nil, err
	}
	if cfg.Fetch.BackoffStep, err = getenvDuration("FETCH_BACKOFF_STEP", defaults.BackoffStep); err != nil {
		return nil, err
	}
	if cfg.Fetch.Timeout, err = getenvDuration("FETCH_TIMEOUT", defaults.Timeout); err != nil {
		return nil, err
	}

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", "file"))
	cfg.CacheDir = getenvDefault("CACHE_DIR", "data/cache")
	cfg.CacheNamespace = getenvDefault("CACHE_NAMESPACE", cfg.DataProvider)
	if cfg.CacheNamespace == "mock" {
		cfg.CacheNamespace = "synthetic"
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", 0); err != nil {
		return nil, err
	}
	if cfg.CachePruneInterval, err = getenvDuration("CACHE_PRUNE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")

	if cfg.Thresholds, err = LoadThresholds(os.Getenv("THRESHOLDS_FILE")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the fetch scheduler or stores cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Fetch.YearsBack < 1 {
		errs = append(errs, fmt.Errorf("YEARS_BACK must be at least 1, got %d", c.Fetch.YearsBack))
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY must be at least 1, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("FETCH_MAX_RETRIES must not be negative, got %d", c.Fetch.MaxRetries))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.Fetch.Timeout))
	}
	if c.CacheBackend == "mysql" && c.MySQLDSN == "" {
		errs = append(errs, errors.New("MYSQL_DSN is required for the mysql cache backend"))
	}
	if c.CacheMaxAge > 0 && c.CachePruneInterval <= 0 {
		errs = append(errs, errors.New("CACHE_PRUNE_INTERVAL must be positive when CACHE_MAX_AGE is set"))
	}

	return errors.Join(errs...)
}

// LoadThresholds reads classification thresholds from a YAML file. Keys the
// file omits keep their defaults; an empty path returns the defaults.
func LoadThresholds(path string) (weather.Thresholds, error) {
	th := weather.DefaultThresholds()
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("failed to read thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("failed to parse thresholds file: %w", err)
	}
	return th, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
