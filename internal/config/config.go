package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Feasibility   FeasibilityConfig   `yaml:"feasibility"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	CORS          CORSConfig          `yaml:"cors"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"SERVER_PORT"`
	Host string `yaml:"host" env:"SERVER_HOST"`
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ElasticsearchConfig holds the search cluster connection settings.
type ElasticsearchConfig struct {
	Addresses      []string `yaml:"addresses" env:"ELASTICSEARCH_ADDRESSES" envSeparator:","`
	Username       string   `yaml:"username" env:"ELASTICSEARCH_USERNAME"`
	Password       string   `yaml:"password" env:"ELASTICSEARCH_PASSWORD"`
	APIKey         string   `yaml:"api_key" env:"ELASTICSEARCH_API_KEY"`
	Preference     string   `yaml:"preference" env:"ELASTICSEARCH_PREFERENCE"`
	TimeoutSeconds int      `yaml:"timeout_seconds" env:"ELASTICSEARCH_TIMEOUT_SECONDS"`
	// MaxRetries is applied by the HTTP transport, never by the engine.
	MaxRetries int `yaml:"max_retries" env:"ELASTICSEARCH_MAX_RETRIES"`
}

// Timeout returns the per-request timeout as a duration
func (c ElasticsearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FeasibilityConfig holds the volume norms and discriminance tiers.
type FeasibilityConfig struct {
	PersonaNorm   int64               `yaml:"persona_norm" env:"FEASIBILITY_PERSONA_NORM"`
	PerformerNorm int64               `yaml:"performer_norm" env:"FEASIBILITY_PERFORMER_NORM"`
	OutlierShare  float64             `yaml:"outlier_share" env:"FEASIBILITY_OUTLIER_SHARE"`
	Thresholds    DiscriminanceConfig `yaml:"discriminance_thresholds"`
}

// DiscriminanceConfig holds the tier boundaries in percent.
type DiscriminanceConfig struct {
	Bad    float64 `yaml:"bad"`
	First  float64 `yaml:"first"`
	Second float64 `yaml:"second"`
	Third  float64 `yaml:"third"`
	Floor  float64 `yaml:"floor"`
}

// CatalogConfig names the lookup indices behind the keyword and asset search.
type CatalogConfig struct {
	KeywordIndex string `yaml:"keyword_index" env:"CATALOG_KEYWORD_INDEX"`
	AssetIndex   string `yaml:"asset_index" env:"CATALOG_ASSET_INDEX"`
	PageSize     int    `yaml:"page_size"`
}

// RateLimitConfig holds the Redis-backed limiter for feasibility endpoints.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	RedisURL          string `yaml:"redis_url" env:"REDIS_URL"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// CORSConfig holds the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL"`
	RedactIDs *bool  `yaml:"redact_ids"`
}

// ShouldRedact reports whether user identifiers are masked; on unless disabled.
func (c LoggingConfig) ShouldRedact() bool {
	return c.RedactIDs == nil || *c.RedactIDs
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Elasticsearch.Addresses) == 0 {
		cfg.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Elasticsearch.Preference == "" {
		cfg.Elasticsearch.Preference = "feasibility"
	}
	if cfg.Elasticsearch.TimeoutSeconds == 0 {
		cfg.Elasticsearch.TimeoutSeconds = 30
	}
	if cfg.Feasibility.PersonaNorm == 0 {
		cfg.Feasibility.PersonaNorm = 1000
	}
	if cfg.Feasibility.PerformerNorm == 0 {
		cfg.Feasibility.PerformerNorm = 300
	}
	if cfg.Feasibility.OutlierShare == 0 {
		cfg.Feasibility.OutlierShare = 0.01
	}
	if cfg.Feasibility.Thresholds == (DiscriminanceConfig{}) {
		cfg.Feasibility.Thresholds = DiscriminanceConfig{Bad: 20, First: 15, Second: 10, Third: 5, Floor: 0}
	}
	if cfg.Catalog.KeywordIndex == "" {
		cfg.Catalog.KeywordIndex = "keywords"
	}
	if cfg.Catalog.AssetIndex == "" {
		cfg.Catalog.AssetIndex = "asset_ref"
	}
	if cfg.Catalog.PageSize == 0 {
		cfg.Catalog.PageSize = 10
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "audience-feasibility"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
// An empty path starts from Default.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	if len(cfg.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("elasticsearch.addresses is required"))
	}
	if cfg.Elasticsearch.APIKey != "" && cfg.Elasticsearch.Username != "" {
		errs = append(errs, errors.New("elasticsearch: set either api_key or username, not both"))
	}
	if cfg.Elasticsearch.MaxRetries < 0 {
		errs = append(errs, errors.New("elasticsearch.max_retries must not be negative"))
	}
	if cfg.Feasibility.PersonaNorm <= 0 || cfg.Feasibility.PerformerNorm <= 0 {
		errs = append(errs, errors.New("feasibility norms must be positive"))
	}
	if cfg.Feasibility.OutlierShare < 0 || cfg.Feasibility.OutlierShare >= 1 {
		errs = append(errs, fmt.Errorf("feasibility.outlier_share %v must be in [0, 1)", cfg.Feasibility.OutlierShare))
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RedisURL == "" {
		errs = append(errs, errors.New("rate_limit.redis_url is required when rate limiting is enabled"))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	return errors.Join(errs...)
}
