package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CacheBackend selects where the station cache lives.
type CacheBackend string

const (
	// CacheBackendFile keeps the station blob and scalar entries in local
	// files under CacheDir.
	CacheBackendFile CacheBackend = "file"
	// CacheBackendCloud keeps the station blob in S3 and the scalar
	// entries in DynamoDB.
	CacheBackendCloud CacheBackend = "cloud"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level

	// Remote fetch
	StationsBaseURL string
	HTTPTimeout     time.Duration
	MaxRetries      int

	// Refresh orchestration
	UpdateInterval time.Duration
	SearchRadiusKm float64

	// Default search center used when no live or cached fix exists.
	DefaultLatitude  float64
	DefaultLongitude float64

	// Cache
	CacheBackend CacheBackend
	CacheDir     string
	S3Bucket     string
	DynamoTable  string

	// Daemon surface
	ListenAddr string

	// Reachability probe target, host:port.
	ProbeAddr     string
	ProbeInterval time.Duration
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithUpdateInterval allows setting the refresh timer interval
func WithUpdateInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.UpdateInterval = interval
	}
}

// WithSearchRadiusKm allows setting the station search radius
func WithSearchRadiusKm(radius float64) Option {
	return func(c *Config) {
		c.SearchRadiusKm = radius
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:     "production",
		LogLevel:        zerolog.InfoLevel,
		StationsBaseURL: "http://ich-tanke-strom.switzerlandnorth.cloudapp.azure.com:8080",
		HTTPTimeout:     10 * time.Second,
		MaxRetries:      3,
		UpdateInterval:  10 * time.Second,
		SearchRadiusKm:  1.0,
		// Zurich
		DefaultLatitude:  47.3769,
		DefaultLongitude: 8.5417,
		CacheBackend:     CacheBackendFile,
		CacheDir:         defaultCacheDir(),
		ListenAddr:       ":8080",
		ProbeAddr:        "1.1.1.1:443",
		ProbeInterval:    5 * time.Second,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithUpdateInterval(getDurationEnvOrDefault("UPDATE_INTERVAL", 10*time.Second)),
		WithSearchRadiusKm(getEnvFloat("SEARCH_RADIUS_KM", 1.0)),
	)

	cfg.StationsBaseURL = getEnvOrDefault("STATIONS_BASE_URL", cfg.StationsBaseURL)
	cfg.MaxRetries = getEnvInt("HTTP_MAX_RETRIES", cfg.MaxRetries)
	cfg.DefaultLatitude = getEnvFloat("DEFAULT_LATITUDE", cfg.DefaultLatitude)
	cfg.DefaultLongitude = getEnvFloat("DEFAULT_LONGITUDE", cfg.DefaultLongitude)
	cfg.CacheBackend = CacheBackend(getEnvOrDefault("CACHE_BACKEND", string(cfg.CacheBackend)))
	cfg.CacheDir = getEnvOrDefault("CACHE_DIR", cfg.CacheDir)
	cfg.S3Bucket = getEnvOrDefault("CACHE_S3_BUCKET", "")
	cfg.DynamoTable = getEnvOrDefault("CACHE_DYNAMO_TABLE", "station-scalars-cache")
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ProbeAddr = getEnvOrDefault("REACHABILITY_PROBE_ADDR", cfg.ProbeAddr)
	cfg.ProbeInterval = getDurationEnvOrDefault("REACHABILITY_PROBE_INTERVAL", cfg.ProbeInterval)

	return cfg
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/charging-stations"
	}
	return "."
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
		log.Warn().Str("key", key).Msg("Invalid float value in environment variable, using default")
	}
	return defaultVal
}
