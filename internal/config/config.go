package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Endicia credentials, configured once and read at request time
	EndiciaAccountID   string `envconfig:"ENDICIA_ACCOUNT_ID"`
	EndiciaRequesterID string `envconfig:"ENDICIA_REQUESTER_ID"`
	EndiciaPassphrase  string `envconfig:"ENDICIA_PASSPHRASE"`
	EndiciaTest        bool   `envconfig:"ENDICIA_TEST" default:"true"`
	EndiciaBaseURL     string `envconfig:"ENDICIA_BASE_URL"`
	EndiciaUseMock     bool   `envconfig:"ENDICIA_USE_MOCK" default:"false"`

	// Sale defaults
	DefaultMailClass string `envconfig:"DEFAULT_MAIL_CLASS"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"postage-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("endicia.test", c.EndiciaTest),
		attribute.Bool("endicia.mock", c.EndiciaUseMock),
	}
}
