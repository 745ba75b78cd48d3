// Package config loads disorder lookup settings from YAML files and the
// environment and builds the matching disorder.Service.
//
// A minimal file:
//
//	endpoint:
//	  mode: template
//	  url: https://phenotips.example.org/rest/vocabularies/disorders/{code}
//	lookup:
//	  timeout: 10s
//
// Environment variables prefixed with DISORDER_ override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gofhir/disorder"
	"github.com/gofhir/disorder/cache"
	"github.com/gofhir/disorder/endpoint"
	"github.com/gofhir/disorder/pkg/logger"
	"github.com/gofhir/disorder/transport"
)

// Endpoint modes.
const (
	ModeTemplate = "template"
	ModeFHIR     = "fhir"
)

// Free-text notification policies.
const (
	FreeTextImmediate = "immediate"
	FreeTextNever     = "never"
)

// Environment variable names.
const (
	EnvEndpointURL    = "DISORDER_ENDPOINT_URL"
	EnvEndpointMode   = "DISORDER_ENDPOINT_MODE"
	EnvLookupTimeout  = "DISORDER_LOOKUP_TIMEOUT"
	EnvCacheEnabled   = "DISORDER_CACHE_ENABLED"
	EnvCacheTTL       = "DISORDER_CACHE_TTL"
	EnvRateLimit      = "DISORDER_RATE_LIMIT"
	EnvLogLevel       = "DISORDER_LOG_LEVEL"
	EnvFreeTextNotify = "DISORDER_FREE_TEXT_NOTIFY"
)

// Config is the complete lookup configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	HTTP     HTTPConfig     `yaml:"http"`
	Cache    CacheConfig    `yaml:"cache"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Log      LogConfig      `yaml:"log"`
}

// EndpointConfig selects where lookups go and how responses are read.
type EndpointConfig struct {
	// Mode is "template" or "fhir"
	Mode string `yaml:"mode"`

	// URL is a template containing {code}, or a FHIR server base URL
	URL string `yaml:"url"`

	// Expression overrides the FHIRPath used to read the display in fhir mode
	Expression string `yaml:"expression"`
}

// HTTPConfig configures the transport client.
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"userAgent"`
	RateLimit   float64       `yaml:"rateLimit"`
	Burst       int           `yaml:"burst"`
	MaxBodySize int64         `yaml:"maxBodySize"`
}

// CacheConfig configures the name cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// LookupConfig configures Ref resolution.
type LookupConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	FreeText string        `yaml:"freeText"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{Mode: ModeTemplate},
		HTTP: HTTPConfig{
			Timeout:     transport.DefaultTimeout,
			UserAgent:   transport.DefaultUserAgent,
			MaxBodySize: transport.DefaultMaxBodySize,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    cache.DefaultCapacity,
			TTL:     cache.DefaultTTL,
		},
		Lookup: LookupConfig{
			Timeout:  30 * time.Second,
			FreeText: FreeTextImmediate,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path uses the defaults and the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DISORDER_* variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if v := get(EnvEndpointURL); v != "" {
		c.Endpoint.URL = v
	}
	if v := get(EnvEndpointMode); v != "" {
		c.Endpoint.Mode = strings.ToLower(v)
	}
	if v := get(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := get(EnvFreeTextNotify); v != "" {
		c.Lookup.FreeText = strings.ToLower(v)
	}
	if v := get(EnvLookupTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLookupTimeout, err)
		}
		c.Lookup.Timeout = d
	}
	if v := get(EnvCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = d
	}
	if v := get(EnvCacheEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheEnabled, err)
		}
		c.Cache.Enabled = b
	}
	if v := get(EnvRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		c.HTTP.RateLimit = f
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	switch c.Endpoint.Mode {
	case ModeTemplate:
		if c.Endpoint.URL != "" && !strings.Contains(c.Endpoint.URL, endpoint.Placeholder) {
			errs = append(errs, fmt.Errorf("endpoint.url must contain %s in template mode", endpoint.Placeholder))
		}
	case ModeFHIR:
		if c.Endpoint.URL == "" {
			errs = append(errs, errors.New("endpoint.url is required in fhir mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("endpoint.mode %q is not %q or %q", c.Endpoint.Mode, ModeTemplate, ModeFHIR))
	}

	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rateLimit must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		errs = append(errs, errors.New("cache.size must be positive when the cache is enabled"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Lookup.Timeout < 0 {
		errs = append(errs, errors.New("lookup.timeout must not be negative"))
	}
	if _, err := c.freeTextNotify(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) freeTextNotify() (disorder.FreeTextNotify, error) {
	switch c.Lookup.FreeText {
	case "", FreeTextImmediate:
		return disorder.NotifyImmediately, nil
	case FreeTextNever:
		return disorder.NotifyNever, nil
	default:
		return 0, fmt.Errorf("lookup.freeText %q is not %q or %q", c.Lookup.FreeText, FreeTextImmediate, FreeTextNever)
	}
}

// NewLogger creates a stderr logger at the configured level.
func (c *Config) NewLogger() (*logger.Logger, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.New(os.Stderr, level), nil
}

// NewEndpoint builds the endpoint resolver. An empty URL yields nil, so
// coded identifiers fail with disorder.ErrNoClient.
func (c *Config) NewEndpoint() (disorder.EndpointResolver, error) {
	if c.Endpoint.URL == "" {
		return nil, nil
	}
	if c.Endpoint.Mode == ModeFHIR {
		f, err := endpoint.NewFHIRLookup(c.Endpoint.URL)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	t, err := endpoint.NewTemplate(c.Endpoint.URL)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewDecoder returns the decoder matching the endpoint mode.
func (c *Config) NewDecoder() (disorder.Decoder, error) {
	if c.Endpoint.Mode != ModeFHIR {
		return disorder.JSONDecoder{}, nil
	}
	dec, err := disorder.NewFHIRPathDecoder(c.Endpoint.Expression)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// NewClient builds the transport client.
func (c *Config) NewClient() *transport.Client {
	return transport.NewClient(
		transport.WithTimeout(c.HTTP.Timeout),
		transport.WithUserAgent(c.HTTP.UserAgent),
		transport.WithRateLimit(c.HTTP.RateLimit, c.HTTP.Burst),
		transport.WithMaxBodySize(c.HTTP.MaxBodySize),
	)
}

// ServiceOptions translates the configuration into disorder options.
func (c *Config) ServiceOptions() ([]disorder.Option, error) {
	dec, err := c.NewDecoder()
	if err != nil {
		return nil, err
	}
	notify, err := c.freeTextNotify()
	if err != nil {
		return nil, err
	}

	opts := []disorder.Option{
		disorder.WithDecoder(dec),
		disorder.WithLookupTimeout(c.Lookup.Timeout),
		disorder.WithFreeTextNotify(notify),
	}
	if c.Cache.Enabled {
		opts = append(opts, disorder.WithCacheSize(c.Cache.Size), disorder.WithCacheTTL(c.Cache.TTL))
	} else {
		opts = append(opts, disorder.WithoutCache())
	}
	return opts, nil
}

// NewService validates the configuration and builds a Service. Extra
// options are applied after the configured ones.
func (c *Config) NewService(extra ...disorder.Option) (*disorder.Service, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ep, err := c.NewEndpoint()
	if err != nil {
		return nil, err
	}
	opts, err := c.ServiceOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	var client disorder.Client
	if ep != nil {
		client = c.NewClient()
	}
	return disorder.NewService(ep, client, opts...), nil
}
