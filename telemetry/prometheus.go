// Package telemetry exports disorder.Metrics to Prometheus.
//
// The exporter reads the service's atomic counters at scrape time; nothing
// is double counted and the hot path is unchanged.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gofhir/disorder"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "disorder"

var outcomes = []disorder.Outcome{
	disorder.OutcomeResolved,
	disorder.OutcomeNoName,
	disorder.OutcomeParseError,
	disorder.OutcomeTransportError,
}

// Exporter holds one collector per exported series.
type Exporter struct {
	Lookups     map[disorder.Outcome]prometheus.CounterFunc
	FreeText    prometheus.CounterFunc
	Joined      prometheus.CounterFunc
	Shared      prometheus.CounterFunc
	CacheHits   prometheus.CounterFunc
	CacheMisses prometheus.CounterFunc
	CacheSize   prometheus.GaugeFunc
	AvgLookup   prometheus.GaugeFunc
}

// NewExporter creates collectors for svc under namespace, or
// DefaultNamespace when namespace is empty.
func NewExporter(namespace string, svc *disorder.Service) *Exporter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := svc.Metrics()

	counter := func(name, help string, f func() uint64) prometheus.CounterFunc {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(f()) })
	}

	e := &Exporter{
		Lookups:     make(map[disorder.Outcome]prometheus.CounterFunc, len(outcomes)),
		FreeText:    counter("free_text_total", "Identifiers resolved as free text without a lookup.", m.FreeText),
		Joined:      counter("joined_total", "Resolve calls that joined a lookup already in flight.", m.Joined),
		Shared:      counter("shared_total", "Lookups answered by a concurrent request for the same code.", m.Shared),
		CacheHits:   counter("cache_hits_total", "Names served from the cache.", m.CacheHits),
		CacheMisses: counter("cache_misses_total", "Name cache misses.", m.CacheMisses),
		CacheSize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held in the name cache.",
		}, func() float64 {
			if c := svc.Cache(); c != nil {
				return float64(c.Len())
			}
			return 0
		}),
		AvgLookup: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lookup_duration_average_seconds",
			Help:      "Average duration of lookups sent to the client.",
		}, func() float64 { return m.AverageLookupTime().Seconds() }),
	}

	for _, o := range outcomes {
		e.Lookups[o] = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "lookups_total",
			Help:        "Lookups sent to the client, by outcome.",
			ConstLabels: prometheus.Labels{"outcome": o.String()},
		}, func() float64 { return float64(m.Outcomes(o)) })
	}
	return e
}

// Collectors returns every collector of the exporter.
func (e *Exporter) Collectors() []prometheus.Collector {
	cs := []prometheus.Collector{
		e.FreeText, e.Joined, e.Shared,
		e.CacheHits, e.CacheMisses, e.CacheSize, e.AvgLookup,
	}
	for _, o := range outcomes {
		cs = append(cs, e.Lookups[o])
	}
	return cs
}

// Register registers all collectors with reg.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	for _, c := range e.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
