package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// CarrierConfig is the per-provider block shared by every adapter.
type CarrierConfig struct {
	Enabled bool
	UseMock bool
	APIKey  string
	BaseURL string

	// Rate limiting. MaxRequests == 0 means unlimited.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Markup. Percent wins over Flat when both are set.
	MarkupFlat    int64 // minor units
	MarkupPercent float64
}

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	RedisAddr   string        `envconfig:"REDIS_ADDR"`
	RedisTTL    time.Duration `envconfig:"REDIS_TTL" default:"720h"`

	// Messaging
	AMQPURL    string `envconfig:"AMQP_URL"`
	OrderQueue string `envconfig:"ORDER_EVENT_QUEUE" default:"broker.order.events"`

	// Geocoding
	GeocodingBaseURL string `envconfig:"GEOCODING_BASE_URL"`
	GeocodingAPIKey  string `envconfig:"GEOCODING_API_KEY"`

	// DefaultContactPhone backs address-book registration when a pickup
	// location has no phone of its own.
	DefaultContactPhone string `envconfig:"DEFAULT_CONTACT_PHONE" default:"+2348000000000"`

	// Glovo
	GlovoAPIKey          string        `envconfig:"GLOVO_API_KEY"`
	GlovoBaseURL         string        `envconfig:"GLOVO_BASE_URL" default:"https://api.glovoapp.com"`
	GlovoEnabled         bool          `envconfig:"GLOVO_ENABLED" default:"true"`
	GlovoUseMock         bool          `envconfig:"GLOVO_USE_MOCK" default:"false"`
	GlovoRateLimitMax    int           `envconfig:"GLOVO_RATE_LIMIT_MAX" default:"60"`
	GlovoRateLimitWindow time.Duration `envconfig:"GLOVO_RATE_LIMIT_WINDOW" default:"1m"`
	GlovoMarkupFlat      int64         `envconfig:"GLOVO_MARKUP_FLAT" default:"20000"`
	GlovoMarkupPercent   float64       `envconfig:"GLOVO_MARKUP_PERCENT" default:"0"`

	// Faramove
	FaramoveAPIKey          string        `envconfig:"FARAMOVE_API_KEY"`
	FaramoveBaseURL         string        `envconfig:"FARAMOVE_BASE_URL" default:"https://api.faramove.com"`
	FaramoveEnabled         bool          `envconfig:"FARAMOVE_ENABLED" default:"false"`
	FaramoveUseMock         bool          `envconfig:"FARAMOVE_USE_MOCK" default:"false"`
	FaramoveRateLimitMax    int           `envconfig:"FARAMOVE_RATE_LIMIT_MAX" default:"30"`
	FaramoveRateLimitWindow time.Duration `envconfig:"FARAMOVE_RATE_LIMIT_WINDOW" default:"1m"`
	FaramoveMarkupFlat      int64         `envconfig:"FARAMOVE_MARKUP_FLAT" default:"20000"`
	FaramoveMarkupPercent   float64       `envconfig:"FARAMOVE_MARKUP_PERCENT" default:"0"`

	// Fez
	FezAPIKey          string        `envconfig:"FEZ_API_KEY"`
	FezBaseURL         string        `envconfig:"FEZ_BASE_URL" default:"https://api.fezdelivery.co"`
	FezEnabled         bool          `envconfig:"FEZ_ENABLED" default:"false"`
	FezUseMock         bool          `envconfig:"FEZ_USE_MOCK" default:"false"`
	FezRateLimitMax    int           `envconfig:"FEZ_RATE_LIMIT_MAX" default:"30"`
	FezRateLimitWindow time.Duration `envconfig:"FEZ_RATE_LIMIT_WINDOW" default:"1m"`
	FezMarkupFlat      int64         `envconfig:"FEZ_MARKUP_FLAT" default:"20000"`
	FezMarkupPercent   float64       `envconfig:"FEZ_MARKUP_PERCENT" default:"0"`

	// GIG
	GigAPIKey          string        `envconfig:"GIG_API_KEY"`
	GigBaseURL         string        `envconfig:"GIG_BASE_URL" default:"https://api.giglogistics.com"`
	GigEnabled         bool          `envconfig:"GIG_ENABLED" default:"false"`
	GigUseMock         bool          `envconfig:"GIG_USE_MOCK" default:"false"`
	GigRateLimitMax    int           `envconfig:"GIG_RATE_LIMIT_MAX" default:"30"`
	GigRateLimitWindow time.Duration `envconfig:"GIG_RATE_LIMIT_WINDOW" default:"1m"`
	GigMarkupFlat      int64         `envconfig:"GIG_MARKUP_FLAT" default:"20000"`
	GigMarkupPercent   float64       `envconfig:"GIG_MARKUP_PERCENT" default:"0"`

	// DHL
	DhlAPIKey          string        `envconfig:"DHL_API_KEY"`
	DhlAccountID       string        `envconfig:"DHL_ACCOUNT_ID"`
	DhlBaseURL         string        `envconfig:"DHL_BASE_URL" default:"https://express.api.dhl.com/mydhlapi"`
	DhlEnabled         bool          `envconfig:"DHL_ENABLED" default:"true"`
	DhlUseMock         bool          `envconfig:"DHL_USE_MOCK" default:"false"`
	DhlRateLimitMax    int           `envconfig:"DHL_RATE_LIMIT_MAX" default:"100"`
	DhlRateLimitWindow time.Duration `envconfig:"DHL_RATE_LIMIT_WINDOW" default:"1m"`
	DhlMarkupFlat      int64         `envconfig:"DHL_MARKUP_FLAT" default:"0"`
	DhlMarkupPercent   float64       `envconfig:"DHL_MARKUP_PERCENT" default:"10"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"parceldeck-broker"`
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

// Glovo returns the Glovo carrier block.
func (c *Config) Glovo() CarrierConfig {
	return CarrierConfig{
		Enabled: c.GlovoEnabled, UseMock: c.GlovoUseMock,
		APIKey: c.GlovoAPIKey, BaseURL: c.GlovoBaseURL,
		RateLimitMax: c.GlovoRateLimitMax, RateLimitWindow: c.GlovoRateLimitWindow,
		MarkupFlat: c.GlovoMarkupFlat, MarkupPercent: c.GlovoMarkupPercent,
	}
}

// Faramove returns the Faramove carrier block.
func (c *Config) Faramove() CarrierConfig {
	return CarrierConfig{
		Enabled: c.FaramoveEnabled, UseMock: c.FaramoveUseMock,
		APIKey: c.FaramoveAPIKey, BaseURL: c.FaramoveBaseURL,
		RateLimitMax: c.FaramoveRateLimitMax, RateLimitWindow: c.FaramoveRateLimitWindow,
		MarkupFlat: c.FaramoveMarkupFlat, MarkupPercent: c.FaramoveMarkupPercent,
	}
}

// Fez returns the Fez carrier block.
func (c *Config) Fez() CarrierConfig {
	return CarrierConfig{
		Enabled: c.FezEnabled, UseMock: c.FezUseMock,
		APIKey: c.FezAPIKey, BaseURL: c.FezBaseURL,
		RateLimitMax: c.FezRateLimitMax, RateLimitWindow: c.FezRateLimitWindow,
		MarkupFlat: c.FezMarkupFlat, MarkupPercent: c.FezMarkupPercent,
	}
}

// Gig returns the GIG carrier block.
func (c *Config) Gig() CarrierConfig {
	return CarrierConfig{
		Enabled: c.GigEnabled, UseMock: c.GigUseMock,
		APIKey: c.GigAPIKey, BaseURL: c.GigBaseURL,
		RateLimitMax: c.GigRateLimitMax, RateLimitWindow: c.GigRateLimitWindow,
		MarkupFlat: c.GigMarkupFlat, MarkupPercent: c.GigMarkupPercent,
	}
}

// Dhl returns the DHL carrier block.
func (c *Config) Dhl() CarrierConfig {
	return CarrierConfig{
		Enabled: c.DhlEnabled, UseMock: c.DhlUseMock,
		APIKey: c.DhlAPIKey, BaseURL: c.DhlBaseURL,
		RateLimitMax: c.DhlRateLimitMax, RateLimitWindow: c.DhlRateLimitWindow,
		MarkupFlat: c.DhlMarkupFlat, MarkupPercent: c.DhlMarkupPercent,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("glovo.enabled", c.GlovoEnabled),
		attribute.Bool("faramove.enabled", c.FaramoveEnabled),
		attribute.Bool("fez.enabled", c.FezEnabled),
		attribute.Bool("gig.enabled", c.GigEnabled),
		attribute.Bool("dhl.enabled", c.DhlEnabled),
	}
}
