package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DeletePolicy selects how a mailbox deletion treats its rows.
type DeletePolicy string

const (
	// DeleteSoft deactivates the mailbox and its tenants.
	DeleteSoft DeletePolicy = "soft"
	// DeleteHard removes the mailbox; tenants and packages cascade.
	DeleteHard DeletePolicy = "hard"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	DatabaseURL        string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBConnectTimeout   time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	DBStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	CORSOrigins        []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	AutoMigrate        bool          `env:"AUTO_MIGRATE" envDefault:"false"`

	// SchemaVariant is auto, relational or legacy.
	SchemaVariant       string       `env:"SCHEMA_VARIANT" envDefault:"auto"`
	MailboxDeletePolicy DeletePolicy `env:"MAILBOX_DELETE_POLICY" envDefault:"soft"`

	Redis RedisConfig
	Minio MinioConfig
	Auth  AuthConfig
	Log   LogConfig
	Jobs  JobsConfig
	API   APIConfig
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB" envDefault:"0"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"2m"`
}

// MinioConfig configures optional offloading of signature images.
type MinioConfig struct {
	Enabled   bool   `env:"MINIO_ENABLED" envDefault:"false"`
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	Region    string `env:"MINIO_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"MINIO_SIGNATURE_BUCKET" envDefault:"signatures"`
	// PresignExpiry bounds the lifetime of redirect URLs handed to clients.
	PresignExpiry time.Duration `env:"MINIO_PRESIGN_EXPIRY" envDefault:"15m"`
}

type AuthConfig struct {
	Disabled  bool   `env:"AUTH_DISABLED" envDefault:"false"`
	JWTSecret string `env:"JWT_SECRET"`
	JWKSURL   string `env:"JWKS_URL"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type JobsConfig struct {
	Enabled            bool          `env:"JOBS_ENABLED" envDefault:"true"`
	ReportWarmInterval time.Duration `env:"JOB_REPORT_WARM_INTERVAL" envDefault:"5m"`
	AgingScanInterval  time.Duration `env:"JOB_AGING_SCAN_INTERVAL" envDefault:"1h"`
	AgingThresholdDays int           `env:"AGING_THRESHOLD_DAYS" envDefault:"14"`
}

// APIConfig announces the retirement of the v1 API.
type APIConfig struct {
	V1Deprecated bool `env:"API_V1_DEPRECATED" envDefault:"false"`
	// V1Sunset is an RFC 3339 timestamp.
	V1Sunset time.Time `env:"API_V1_SUNSET"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.MailboxDeletePolicy {
	case DeleteSoft, DeleteHard:
	default:
		return fmt.Errorf("MAILBOX_DELETE_POLICY must be soft or hard, got %q", c.MailboxDeletePolicy)
	}
	switch c.SchemaVariant {
	case "auto", "relational", "legacy":
	default:
		return fmt.Errorf("SCHEMA_VARIANT must be auto, relational or legacy, got %q", c.SchemaVariant)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.Jobs.AgingThresholdDays < 1 {
		return fmt.Errorf("AGING_THRESHOLD_DAYS must be positive")
	}
	if !c.API.V1Sunset.IsZero() && !c.API.V1Deprecated {
		return fmt.Errorf("API_V1_SUNSET requires API_V1_DEPRECATED")
	}
	return nil
}
