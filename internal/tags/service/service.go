// Package service implements the tag synchronization layer: fetching,
// caching, and mutating the user's tag collection against a backend whose
// schema and endpoint availability are in flux.
//
// All mutable sync state (in-flight coalescing, freshness timestamp,
// capability latches) lives on the Service instance; two services never
// share hidden state.
package service

import (
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/capability"
	tagmetrics "github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/metrics"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/store"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/transport"
)

// DefaultTTL bounds staleness of the cached collection. Tag lists change
// rarely; refetching on every screen focus would be wasteful.
const DefaultTTL = 30 * time.Second

// Service orchestrates tag synchronization for one signed-in account.
type Service struct {
	client  transport.Doer
	store   *store.Store
	gate    *capability.Gate
	metrics *tagmetrics.Metrics
	log     *log.Logger
	tracer  trace.Tracer
	ttl     time.Duration
	now     func() time.Time

	group     singleflight.Group
	freshness freshness
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock injects the time source, for deterministic freshness tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger attaches a logger; the service is silent without one.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *tagmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(client transport.Doer, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store.New(),
		gate:   capability.NewGate(),
		tracer: otel.Tracer("tagsync"),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying entity store so the UI layer can subscribe to
// change notifications and read tags/loading/error state.
func (s *Service) Store() *store.Store { return s.store }

// Tags returns the current collection snapshot in store order.
func (s *Service) Tags() []models.Tag { return s.store.Tags() }

// Loading reports whether a collection fetch is in progress.
func (s *Service) Loading() bool { return s.store.Loading() }

// Err returns the current user-facing error message, "" when none.
func (s *Service) Err() string { return s.store.Err() }

func (s *Service) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
