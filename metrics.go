package disorder

import (
	"sync/atomic"
	"time"
)

// Outcome classifies how a lookup settled.
type Outcome int

// Lookup outcomes.
const (
	// OutcomeResolved means the service returned a name.
	OutcomeResolved Outcome = iota
	// OutcomeNoName means the service answered without a name.
	OutcomeNoName
	// OutcomeParseError means the response body could not be decoded.
	OutcomeParseError
	// OutcomeTransportError means the request itself failed.
	OutcomeTransportError
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoName:
		return "no_name"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Metrics tracks resolution activity using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Lookups that reached the HTTP client
	lookupsTotal atomic.Uint64
	outcomes     [4]atomic.Uint64

	// Resolutions that never needed a lookup
	freeText atomic.Uint64

	// Resolve calls that joined a lookup already in flight on the same Ref
	joined atomic.Uint64

	// Lookups answered by another goroutine's request for the same code
	shared atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Timing (stored as nanoseconds)
	lookupTimeTotal atomic.Uint64
	lookupTimeMin   atomic.Uint64
	lookupTimeMax   atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.lookupTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordLookup records a settled lookup and its duration.
func (m *Metrics) RecordLookup(duration time.Duration, outcome Outcome) {
	m.lookupsTotal.Add(1)
	if outcome >= 0 && int(outcome) < len(m.outcomes) {
		m.outcomes[outcome].Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.lookupTimeTotal.Add(ns)

	for {
		old := m.lookupTimeMin.Load()
		if ns >= old || m.lookupTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.lookupTimeMax.Load()
		if ns <= old || m.lookupTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordFreeText records an identifier resolved as free text.
func (m *Metrics) RecordFreeText() {
	m.freeText.Add(1)
}

// RecordJoined records a Resolve call that joined an in-flight lookup.
func (m *Metrics) RecordJoined() {
	m.joined.Add(1)
}

// RecordShared records a lookup answered by a concurrent identical request.
func (m *Metrics) RecordShared() {
	m.shared.Add(1)
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// --- Query Methods ---

// LookupsTotal returns the number of lookups sent to the client.
func (m *Metrics) LookupsTotal() uint64 {
	return m.lookupsTotal.Load()
}

// Outcomes returns the number of lookups that settled with outcome.
func (m *Metrics) Outcomes(outcome Outcome) uint64 {
	if outcome < 0 || int(outcome) >= len(m.outcomes) {
		return 0
	}
	return m.outcomes[outcome].Load()
}

// FreeText returns the number of free-text resolutions.
func (m *Metrics) FreeText() uint64 {
	return m.freeText.Load()
}

// Joined returns the number of Resolve calls that joined an in-flight lookup.
func (m *Metrics) Joined() uint64 {
	return m.joined.Load()
}

// Shared returns the number of lookups served by a concurrent request.
func (m *Metrics) Shared() uint64 {
	return m.shared.Load()
}

// CacheHits returns the total cache hits.
func (m *Metrics) CacheHits() uint64 {
	return m.cacheHits.Load()
}

// CacheMisses returns the total cache misses.
func (m *Metrics) CacheMisses() uint64 {
	return m.cacheMisses.Load()
}

// CacheHitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// AverageLookupTime returns the average lookup duration.
func (m *Metrics) AverageLookupTime() time.Duration {
	total := m.lookupsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.lookupTimeTotal.Load() / total) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MinLookupTime returns the minimum lookup duration.
func (m *Metrics) MinLookupTime() time.Duration {
	minVal := m.lookupTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MaxLookupTime returns the maximum lookup duration.
func (m *Metrics) MaxLookupTime() time.Duration {
	return time.Duration(m.lookupTimeMax.Load()) //nolint:gosec // Safe: nanoseconds within int64 range
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	LookupsTotal    uint64 `json:"lookups_total"`
	Resolved        uint64 `json:"resolved"`
	NoName          uint64 `json:"no_name"`
	ParseErrors     uint64 `json:"parse_errors"`
	TransportErrors uint64 `json:"transport_errors"`

	FreeText uint64 `json:"free_text"`
	Joined   uint64 `json:"joined"`
	Shared   uint64 `json:"shared"`

	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	AvgLookupTimeNs uint64 `json:"avg_lookup_time_ns"`
	MinLookupTimeNs uint64 `json:"min_lookup_time_ns"`
	MaxLookupTimeNs uint64 `json:"max_lookup_time_ns"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:       time.Now(),
		LookupsTotal:    m.LookupsTotal(),
		Resolved:        m.Outcomes(OutcomeResolved),
		NoName:          m.Outcomes(OutcomeNoName),
		ParseErrors:     m.Outcomes(OutcomeParseError),
		TransportErrors: m.Outcomes(OutcomeTransportError),
		FreeText:        m.FreeText(),
		Joined:          m.Joined(),
		Shared:          m.Shared(),
		CacheHits:       m.CacheHits(),
		CacheMisses:     m.CacheMisses(),
		CacheHitRate:    m.CacheHitRate(),
		AvgLookupTimeNs: uint64(m.AverageLookupTime()), //nolint:gosec // durations here are never negative
		MinLookupTimeNs: uint64(m.MinLookupTime()),     //nolint:gosec // durations here are never negative
		MaxLookupTimeNs: uint64(m.MaxLookupTime()),     //nolint:gosec // durations here are never negative
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.lookupsTotal.Store(0)
	for i := range m.outcomes {
		m.outcomes[i].Store(0)
	}
	m.freeText.Store(0)
	m.joined.Store(0)
	m.shared.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.lookupTimeTotal.Store(0)
	m.lookupTimeMin.Store(^uint64(0))
	m.lookupTimeMax.Store(0)
}
