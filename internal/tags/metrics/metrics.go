package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for the tag sync layer. Registration is
// against a caller-supplied registry so multiple service instances (tests)
// never collide on the default one.
type Metrics struct {
	FetchesTotal        prometheus.Counter
	FetchesCoalesced    prometheus.Counter
	CacheHits           prometheus.Counter
	FetchDuration       prometheus.Histogram
	GateTrips           *prometheus.CounterVec
	OptimisticRollbacks prometheus.Counter
	UnknownDomains      prometheus.Counter
}

// New creates a Metrics instance with all tag sync metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagsync_fetches_total",
			Help: "Total number of collection fetches that hit the network",
		}),
		FetchesCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagsync_fetches_coalesced_total",
			Help: "Fetch calls that joined an already in-flight request",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagsync_cache_hits_total",
			Help: "Fetch calls answered from the fresh in-memory store",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tagsync_fetch_duration_seconds",
			Help:    "Duration of collection fetch round trips",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		GateTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagsync_capability_gate_trips_total",
			Help: "Endpoints latched unsupported after a migration signal",
		}, []string{"endpoint"}),
		OptimisticRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagsync_optimistic_rollbacks_total",
			Help: "Privacy toggles rolled back after a failed server mutation",
		}),
		UnknownDomains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagsync_unknown_domains_total",
			Help: "Ingested tags whose domain value was not recognized",
		}),
	}
	reg.MustRegister(
		m.FetchesTotal, m.FetchesCoalesced, m.CacheHits, m.FetchDuration,
		m.GateTrips, m.OptimisticRollbacks, m.UnknownDomains,
	)
	return m
}

// ObserveFetch records the duration of a network fetch. Call with time.Now()
// taken at the start of the round trip.
func (m *Metrics) ObserveFetch(start time.Time) {
	if m == nil {
		return
	}
	m.FetchesTotal.Inc()
	m.FetchDuration.Observe(time.Since(start).Seconds())
}

// IncCoalesced records a fetch call that shared an in-flight request.
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.FetchesCoalesced.Inc()
}

// IncCacheHit records a fetch answered from the fresh store.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// IncGateTrip records an endpoint latching unsupported.
func (m *Metrics) IncGateTrip(endpoint string) {
	if m == nil {
		return
	}
	m.GateTrips.WithLabelValues(endpoint).Inc()
}

// IncRollback records one optimistic mutation rolled back.
func (m *Metrics) IncRollback() {
	if m == nil {
		return
	}
	m.OptimisticRollbacks.Inc()
}

// IncUnknownDomain records one tag ingested with an unrecognized domain.
func (m *Metrics) IncUnknownDomain() {
	if m == nil {
		return
	}
	m.UnknownDomains.Inc()
}
