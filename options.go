package disorder

import (
	"time"

	"github.com/gofhir/disorder/cache"
	"github.com/gofhir/disorder/pkg/logger"
)

// FreeTextNotify controls whether the completion callback fires when an
// identifier turns out to be free text and no lookup is issued.
type FreeTextNotify int

const (
	// NotifyImmediately invokes the callback synchronously, before Resolve
	// returns.
	NotifyImmediately FreeTextNotify = iota
	// NotifyNever leaves the callback uninvoked; the caller learns the
	// outcome from Name and State.
	NotifyNever
)

// Option configures a Service.
type Option func(*Options)

// Options holds all configuration for a Service.
type Options struct {
	// Logger receives lookup diagnostics
	Logger *logger.Logger

	// Decoder parses lookup response bodies
	Decoder Decoder

	// Metrics records resolution activity; nil allocates a fresh instance
	Metrics *Metrics

	// Cache settings. Cache, when set, is used as is and the size and TTL
	// are ignored.
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
	Cache        *cache.Cache[Code, CacheEntry]

	// LookupTimeout bounds each lookup; zero disables the bound
	LookupTimeout time.Duration

	// FreeText selects the free-text completion behavior
	FreeText FreeTextNotify
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Logger:        logger.Default(),
		Decoder:       JSONDecoder{},
		CacheEnabled:  true,
		CacheSize:     cache.DefaultCapacity,
		CacheTTL:      cache.DefaultTTL,
		LookupTimeout: 30 * time.Second,
		FreeText:      NotifyImmediately,
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithDecoder sets the response decoder.
func WithDecoder(d Decoder) Option {
	return func(o *Options) {
		if d != nil {
			o.Decoder = d
		}
	}
}

// WithMetrics shares a Metrics instance with the Service.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithCache shares an existing name cache, for example between services
// that talk to the same terminology server.
func WithCache(c *cache.Cache[Code, CacheEntry]) Option {
	return func(o *Options) {
		o.Cache = c
		o.CacheEnabled = c != nil
	}
}

// WithCacheSize sets the name cache capacity.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.CacheSize = size
	}
}

// WithCacheTTL sets how long resolved names are kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.CacheTTL = ttl
	}
}

// WithoutCache disables the name cache; every Resolve issues a lookup.
func WithoutCache() Option {
	return func(o *Options) {
		o.CacheEnabled = false
	}
}

// WithLookupTimeout bounds every lookup. Zero disables the bound, in which
// case a hung request leaves the Ref loading until ctx is cancelled.
func WithLookupTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d < 0 {
			d = 0
		}
		o.LookupTimeout = d
	}
}

// WithFreeTextNotify chooses the free-text completion behavior.
func WithFreeTextNotify(n FreeTextNotify) Option {
	return func(o *Options) {
		o.FreeText = n
	}
}

// ApplyOptions creates an Options from a list of Option functions.
func ApplyOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
