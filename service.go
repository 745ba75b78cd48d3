package disorder

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gofhir/disorder/cache"
	"github.com/gofhir/disorder/pkg/logger"
)

// CacheEntry is a settled, successful lookup. Found is false when the
// service answered without a name.
type CacheEntry struct {
	Name  string
	Found bool
}

// Service performs lookups for the Refs it creates. It owns the injected
// endpoint resolver and client, the name cache and the metrics; a Service
// is safe for concurrent use and is typically shared across a pedigree.
type Service struct {
	endpoint EndpointResolver
	client   Client
	opts     *Options
	log      *logger.Logger
	metrics  *Metrics
	names    *cache.Cache[Code, CacheEntry]
	group    singleflight.Group
}

// NewService creates a Service. A nil endpoint or client is allowed; coded
// identifiers then fail with ErrNoClient and display their id.
func NewService(endpoint EndpointResolver, client Client, opts ...Option) *Service {
	o := ApplyOptions(opts...)

	s := &Service{
		endpoint: endpoint,
		client:   client,
		opts:     o,
		log:      o.Logger,
		metrics:  o.Metrics,
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if o.CacheEnabled {
		s.names = o.Cache
		if s.names == nil {
			s.names = cache.New[Code, CacheEntry](o.CacheSize, cache.WithTTL(o.CacheTTL))
		}
	}
	return s
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Cache returns the name cache, or nil when caching is disabled.
func (s *Service) Cache() *cache.Cache[Code, CacheEntry] {
	return s.names
}

// NewRef creates a disorder reference.
//
// A non-empty name makes the Ref resolved immediately and no lookup is
// made; onReady is then never called. With an empty name the Ref shows
// Placeholder, and a non-nil onReady starts Resolve right away.
func (s *Service) NewRef(id, name string, onReady func(*Ref)) *Ref {
	r := &Ref{
		svc:   s,
		id:    id,
		name:  Placeholder,
		state: StateUnresolved,
	}
	if name != "" {
		r.name = name
		r.state = StateResolved
		return r
	}
	if onReady != nil {
		r.Resolve(context.Background(), onReady)
	}
	return r
}

// lookup returns the cached or freshly fetched entry for code. Concurrent
// lookups of the same code share one request, bounded by LookupTimeout
// rather than by any caller's context.
func (s *Service) lookup(ctx context.Context, code Code) (CacheEntry, error) {
	if s.names != nil {
		if e, ok := s.names.Get(code); ok {
			s.metrics.RecordCacheHit()
			s.log.With("disorder", code).Debug("loaded disorder from cache")
			return e, nil
		}
		s.metrics.RecordCacheMiss()
	}

	// The shared request outlives any single caller; each caller stops
	// waiting on its own ctx.
	ch := s.group.DoChan(string(code), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), code)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.RecordShared()
		}
		if res.Err != nil {
			return CacheEntry{}, res.Err
		}
		return res.Val.(CacheEntry), nil
	case <-ctx.Done():
		err := ctx.Err()
		s.log.With("disorder", code).Warn("[load disorder] data error: %v", err)
		return CacheEntry{}, &TransportError{Code: code, Err: err}
	}
}

// fetch issues the request for code and classifies the response.
func (s *Service) fetch(ctx context.Context, code Code) (CacheEntry, error) {
	log := s.log.With("disorder", code)

	if s.endpoint == nil || s.client == nil {
		s.metrics.RecordLookup(0, OutcomeTransportError)
		log.Warn("[load disorder] data error: %v", ErrNoClient)
		return CacheEntry{}, &TransportError{Code: code, Err: ErrNoClient}
	}

	url := s.endpoint.DisorderDetailsURL(code)
	if s.opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.LookupTimeout)
		defer cancel()
	}

	start := time.Now()
	body, err := s.client.Get(ctx, url)
	if err != nil {
		s.metrics.RecordLookup(time.Since(start), OutcomeTransportError)
		log.Warn("[load disorder] data error: %v", err)
		return CacheEntry{}, &TransportError{Code: code, URL: url, Err: err}
	}

	rec, err := s.opts.Decoder.Decode(body)
	if err != nil {
		s.metrics.RecordLookup(time.Since(start), OutcomeParseError)
		log.Warn("[load disorder] parse error: %v", err)
		return CacheEntry{}, &ParseError{Code: code, URL: url, Err: err}
	}

	name, found := rec.DisplayName()
	entry := CacheEntry{Name: name, Found: found}
	if found {
		s.metrics.RecordLookup(time.Since(start), OutcomeResolved)
		log.With("name", name).Debug("loaded disorder")
	} else {
		s.metrics.RecordLookup(time.Since(start), OutcomeNoName)
		log.Debug("loaded disorder: no data")
	}

	if s.names != nil {
		s.names.Set(code, entry)
	}
	return entry, nil
}
