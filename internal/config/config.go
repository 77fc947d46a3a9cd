package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store and image backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"

	ImagesDisk  = "disk"
	ImagesMinIO = "minio"
)

// Config aggregates runtime configuration for the homelist API.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
	Sweeper  SweeperConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where listings and image bytes live.
type StorageConfig struct {
	StoreBackend  string
	DataFile      string
	ImageBackend  string
	UploadDir     string
	MaxImageBytes int64
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UseSSL          bool
	Region          string
	PresignTTL      time.Duration
}

// AuthConfig groups bearer-token settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// Enabled reports whether mutating routes require a token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// SweeperConfig controls orphan image cleanup. A zero interval disables the background loop.
type SweeperConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("HOMELIST_API_HOST", "0.0.0.0"),
			Port:         getInt("HOMELIST_API_PORT", 8080),
			ReadTimeout:  getDuration("HOMELIST_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("HOMELIST_API_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("HOMELIST_API_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  getList("HOMELIST_CORS_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			StoreBackend:  strings.ToLower(getString("HOMELIST_STORE_BACKEND", StoreFile)),
			DataFile:      getString("HOMELIST_DATA_FILE", "./data/listings.json"),
			ImageBackend:  strings.ToLower(getString("HOMELIST_IMAGE_BACKEND", ImagesDisk)),
			UploadDir:     getString("HOMELIST_UPLOAD_DIR", "./uploads"),
			MaxImageBytes: getInt64("HOMELIST_MAX_IMAGE_BYTES", 10<<20),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "homelist_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "homelist"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "homelist"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "homelist"),
			Prefix:          getString("MINIO_PREFIX", "images"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
			PresignTTL:      getDuration("MINIO_PRESIGN_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getString("HOMELIST_JWT_SECRET", ""),
			Issuer:    getString("HOMELIST_JWT_ISSUER", "homelist"),
			TokenTTL:  getDuration("HOMELIST_JWT_TTL", time.Hour),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("HOMELIST_METRICS_PATH", "/metrics"),
		},
		Sweeper: SweeperConfig{
			Interval: getDuration("HOMELIST_SWEEP_INTERVAL", 0),
			Grace:    getDuration("HOMELIST_SWEEP_GRACE", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("HOMELIST_API_PORT: %d is not a valid port", c.Server.Port))
	}
	switch c.Storage.StoreBackend {
	case StoreFile:
		if strings.TrimSpace(c.Storage.DataFile) == "" {
			errs = append(errs, errors.New("HOMELIST_DATA_FILE must not be empty"))
		}
	case StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("HOMELIST_STORE_BACKEND: unknown backend %q", c.Storage.StoreBackend))
	}
	switch c.Storage.ImageBackend {
	case ImagesDisk:
		if strings.TrimSpace(c.Storage.UploadDir) == "" {
			errs = append(errs, errors.New("HOMELIST_UPLOAD_DIR must not be empty"))
		}
	case ImagesMinIO:
		if c.MinIO.Bucket == "" {
			errs = append(errs, errors.New("MINIO_BUCKET must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("HOMELIST_IMAGE_BACKEND: unknown backend %q", c.Storage.ImageBackend))
	}
	if c.Storage.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("HOMELIST_MAX_IMAGE_BYTES must be positive"))
	}
	if c.Sweeper.Interval < 0 || c.Sweeper.Grace < 0 {
		errs = append(errs, errors.New("sweeper durations must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
