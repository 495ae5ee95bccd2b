package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for a hestia run.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port for the monitoring server, 0 disables it.
// - Provider: Remote geocoding provider settings.
// - Workers: The size of the custom boundary lookup worker pool.
// - RemoteTimeout: Deadline for a whole remote geocoding batch.
// - InvalidPolicy: What to do with rows holding invalid coordinates (skip, reject).
// - LayersFile: YAML file describing the custom boundary layers.
// - Cache: Optional Redis cache for remote lookups.
// - Database: Optional PostgreSQL storage of results.
type Config struct {
	Env           string         `yaml:"env"`            // Env is the current environment: local, development, production.
	Port          int            `yaml:"metrics.port"`   // Port is the monitoring server port.
	Provider      ProviderConfig `yaml:"provider"`       // Provider configures remote geocoding.
	Workers       int            `yaml:"workers"`        // Workers is the boundary lookup pool size.
	RemoteTimeout time.Duration  `yaml:"remote_timeout"` // RemoteTimeout bounds a remote batch.
	InvalidPolicy string         `yaml:"invalid_policy"` // InvalidPolicy is skip or reject.
	LayersFile    string         `yaml:"layers_file"`    // LayersFile lists custom boundary layers.
	Cache         RedisConfig    `yaml:"redis"`          // Cache holds the redis cache configuration.
	Database      PostgresConfig `yaml:"postgres"`       // Database holds the postgres database configuration.
}

// ProviderConfig selects and tunes the remote geocoding provider.
type ProviderConfig struct {
	Type      string `yaml:"type"`       // Type is photon, nominatim or google.
	APIKey    string `yaml:"api_key"`    // APIKey is required for google.
	URL       string `yaml:"url"`        // URL overrides the public endpoint.
	RateLimit int    `yaml:"rate_limit"` // RateLimit in requests per second.
	Retries   int    `yaml:"retries"`    // Retries of transient failures.
}

// RedisConfig holds the optional cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// Enabled reports whether results should be stored.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// MustLoad loads the configuration from the environment and an optional .env file.
// A Workers value of 0 means the number of CPUs minus one.
func MustLoad() *Config {
	_ = godotenv.Load()

	remoteTimeout, err := time.ParseDuration(setDefaultEnv("HESTIA_REMOTE_TIMEOUT", "10m"))
	if err != nil {
		panic("failed to parse remote timeout from configuration")
	}

	metricsPort, err := strconv.Atoi(setDefaultEnv("HESTIA_METRICS_PORT", "0"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	workers, err := strconv.Atoi(setDefaultEnv("HESTIA_WORKERS", "0"))
	if err != nil {
		panic("failed to parse workers from configuration, must be an integer types")
	}

	rateLimit, err := strconv.Atoi(setDefaultEnv("HESTIA_RATE_LIMIT", "1"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer types")
	}

	retries, err := strconv.Atoi(setDefaultEnv("HESTIA_RETRY_ATTEMPTS", "3"))
	if err != nil {
		panic("failed to parse retry attempts from configuration, must be an integer types")
	}

	cacheTTL, err := time.ParseDuration(setDefaultEnv("HESTIA_CACHE_TTL", "168h"))
	if err != nil {
		panic("failed to parse cache ttl from configuration")
	}

	return &Config{
		Env:  setDefaultEnv("HESTIA_ENV", "production"),
		Port: metricsPort,
		Provider: ProviderConfig{
			Type:      setDefaultEnv("HESTIA_PROVIDER_TYPE", "photon"),
			APIKey:    os.Getenv("HESTIA_PROVIDER_KEY"),
			URL:       os.Getenv("HESTIA_PROVIDER_URL"),
			RateLimit: rateLimit,
			Retries:   retries,
		},
		Workers:       workers,
		RemoteTimeout: remoteTimeout,
		InvalidPolicy: setDefaultEnv("HESTIA_INVALID_POLICY", "skip"),
		LayersFile:    os.Getenv("HESTIA_LAYERS_FILE"),
		Cache: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      cacheTTL,
		},
		Database: PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     setDefaultEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
	}
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}
