package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/medconnect/medconnect/internal/domain/symptomcheck"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema             string        `mapstructure:"DB_SCHEMA"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	KnowledgeBaseSource  string        `mapstructure:"KNOWLEDGE_BASE_SOURCE"`
	KnowledgeBasePath    string        `mapstructure:"KNOWLEDGE_BASE_PATH"`
	PredictionThreshold  float64       `mapstructure:"PREDICTION_THRESHOLD"`
	PredictionMaxResults int           `mapstructure:"PREDICTION_MAX_RESULTS"`
	TLSEnabled           bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile          string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile           string        `mapstructure:"TLS_KEY_FILE"`
	OTelEnabled          bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint         string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure         bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelSampleRatio      float64       `mapstructure:"OTEL_SAMPLER_RATIO"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"KNOWLEDGE_BASE_SOURCE", "KNOWLEDGE_BASE_PATH",
	"PREDICTION_THRESHOLD", "PREDICTION_MAX_RESULTS",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SAMPLER_RATIO",
}

// Load reads .env (if present) and the environment. It does not validate;
// call Validate before using the result to start a server.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("KNOWLEDGE_BASE_SOURCE", symptomcheck.SourceEmbedded)
	v.SetDefault("PREDICTION_THRESHOLD", 20)
	v.SetDefault("PREDICTION_MAX_RESULTS", 3)
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)

	// Bind env vars explicitly so Unmarshal picks up keys without defaults.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// From the environment CORS_ORIGINS arrives as one comma separated string.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	switch c.KnowledgeBaseSource {
	case symptomcheck.SourceEmbedded:
	case symptomcheck.SourceFile:
		if c.KnowledgeBasePath == "" {
			return fmt.Errorf("KNOWLEDGE_BASE_PATH is required when KNOWLEDGE_BASE_SOURCE is %q", symptomcheck.SourceFile)
		}
	case symptomcheck.SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when KNOWLEDGE_BASE_SOURCE is %q", symptomcheck.SourcePostgres)
		}
	default:
		return fmt.Errorf("KNOWLEDGE_BASE_SOURCE must be %q, %q or %q, got %q",
			symptomcheck.SourceEmbedded, symptomcheck.SourceFile, symptomcheck.SourcePostgres, c.KnowledgeBaseSource)
	}

	if c.PredictionThreshold < 0 || c.PredictionThreshold >= 100 {
		return fmt.Errorf("PREDICTION_THRESHOLD must be in [0, 100), got %v", c.PredictionThreshold)
	}
	if c.PredictionMaxResults < 1 {
		return fmt.Errorf("PREDICTION_MAX_RESULTS must be at least 1, got %d", c.PredictionMaxResults)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.DBSchema) == "" {
		return fmt.Errorf("DB_SCHEMA must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLER_RATIO must be in [0, 1], got %v", c.OTelSampleRatio)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
