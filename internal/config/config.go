// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type OpsConfig struct {
	Port      int           `yaml:"port"`
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	Provider      string        `yaml:"provider"`       // informational, defaults to "tap"
	SecretKey     string        `yaml:"secret_key"`     // bearer credential for charge retrieval
	WebhookSecret string        `yaml:"webhook_secret"` // shared HMAC secret for hashstring
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	SourceWindow  time.Duration `yaml:"source_window"`
	SourceCap     int           `yaml:"source_cap"`
	ChargeSpacing time.Duration `yaml:"charge_spacing"`
	ChargeWindow  time.Duration `yaml:"charge_window"`
	ChargeCap     int           `yaml:"charge_cap"`
}

type BillingConfig struct {
	// AmountTolerance is the accepted absolute difference, in minor units,
	// between the verified charge amount and the subscription's expected
	// amount. Default 10 (= 0.010 KWD).
	AmountTolerance int64 `yaml:"amount_tolerance"`
	// CycleDays is the billing-cycle length used when advancing the next
	// billing date after a verified charge.
	CycleDays int `yaml:"cycle_days"`
}

type SecurityConfig struct {
	// EncryptionKey, when set, enables at-rest encryption of raw webhook
	// payloads in the audit table. Must be 16, 24, or 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Grace     time.Duration `yaml:"grace"` // minimum event age before a retry
	BatchSize int           `yaml:"batch_size"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Ops        OpsConfig        `yaml:"ops"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Billing    BillingConfig    `yaml:"billing"`
	Security   SecurityConfig   `yaml:"security"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Gateway.Provider == "" {
		cfg.Gateway.Provider = "tap"
	}
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = 10 * time.Second
	}
	if cfg.Billing.AmountTolerance <= 0 {
		cfg.Billing.AmountTolerance = 10
	}
	if cfg.Billing.CycleDays <= 0 {
		cfg.Billing.CycleDays = 30
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = 15 * time.Minute
	}
	if cfg.Reconciler.Grace <= 0 {
		cfg.Reconciler.Grace = 10 * time.Minute
	}
	if cfg.Reconciler.BatchSize <= 0 {
		cfg.Reconciler.BatchSize = 50
	}
	if cfg.Ops.JWTTTL <= 0 {
		cfg.Ops.JWTTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Gateway.SecretKey == "" {
		return nil, errors.New("gateway.secret_key is required")
	}
	if cfg.Gateway.WebhookSecret == "" {
		return nil, errors.New("gateway.webhook_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
