package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"tgdrive/internal/credential"
)

// Config is loaded as defaults, then an optional YAML file, then environment.
type Config struct {
	Port        string `yaml:"port" envconfig:"PORT"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
	CORSOrigins string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`

	// Metadata storage: "postgres" or "memory"
	Storage       string `yaml:"storage" envconfig:"STORAGE"`
	DatabaseURL   string `yaml:"database_url" envconfig:"DATABASE_URL"`
	RunMigrations bool   `yaml:"run_migrations" envconfig:"RUN_MIGRATIONS"`

	// Token verification: JWKS (RS256/ES256) or a shared HMAC secret
	JWKSURL   string `yaml:"jwks_url" envconfig:"JWKS_URL"`
	JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`

	// Credential-at-rest encryption
	CredentialKey    string `yaml:"credential_key" envconfig:"CREDENTIAL_KEY"` // 64 hex chars
	CredentialCipher string `yaml:"credential_cipher" envconfig:"CREDENTIAL_CIPHER"`

	// Blob transport: "telegram", "s3" or "memory"
	Transport             string        `yaml:"transport" envconfig:"TRANSPORT"`
	TelegramAPIURL        string        `yaml:"telegram_api_url" envconfig:"TELEGRAM_API_URL"`
	TelegramRatePerSecond float64       `yaml:"telegram_rate_per_second" envconfig:"TELEGRAM_RATE_PER_SECOND"`
	TelegramBurst         int           `yaml:"telegram_burst" envconfig:"TELEGRAM_BURST"`
	S3Endpoint            string        `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	S3Region              string        `yaml:"s3_region" envconfig:"S3_REGION"`
	RemoteTimeout         time.Duration `yaml:"remote_timeout" envconfig:"REMOTE_TIMEOUT"`
	MaxUploadBytes        int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`

	LogDir      string `yaml:"log_dir" envconfig:"LOG_DIR"`
	LogMaxFiles int    `yaml:"log_max_files" envconfig:"LOG_MAX_FILES"`
}

// Defaults returns the baseline configuration
func Defaults() *Config {
	return &Config{
		Port:                  "8080",
		Environment:           "dev",
		CORSOrigins:           "http://localhost:3000",
		Storage:               "postgres",
		RunMigrations:         true,
		CredentialCipher:      string(credential.AESGCM),
		Transport:             "telegram",
		TelegramAPIURL:        "https://api.telegram.org",
		TelegramRatePerSecond: 20,
		TelegramBurst:         5,
		S3Region:              "us-east-1",
		RemoteTimeout:         60 * time.Second,
		MaxUploadBytes:        MaxUploadBytes,
		LogMaxFiles:           10,
	}
}

// Load builds the configuration. path may be empty (no YAML overlay).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// No `default` tags: unset variables leave the field as it is
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error

	if _, err := credential.ParseKey(c.CredentialKey); err != nil {
		errs = append(errs, fmt.Errorf("CREDENTIAL_KEY: %w", err))
	}
	if _, err := credential.ParseStrategy(c.CredentialCipher); err != nil {
		errs = append(errs, fmt.Errorf("CREDENTIAL_CIPHER: %w", err))
	}

	switch c.Transport {
	case "telegram", "s3", "memory":
	default:
		errs = append(errs, fmt.Errorf("TRANSPORT: unknown transport %q", c.Transport))
	}

	switch c.Storage {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE: unknown storage %q", c.Storage))
	}

	if c.JWKSURL == "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("one of JWKS_URL or JWT_SECRET is required"))
	}
	if c.JWKSURL == "" && c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// AllowedOrigins splits CORSOrigins on commas
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// IsDev reports whether debug logging and the memory backends are acceptable
func (c *Config) IsDev() bool {
	return c.Environment == "dev" || c.Environment == "test"
}
