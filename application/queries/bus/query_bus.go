package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// Middleware decorates a handler
type Middleware interface {
	Wrap(next QueryHandler) QueryHandler
}

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers   map[reflect.Type]QueryHandler
	middleware []Middleware
	mu         sync.RWMutex
}

// NewQueryBus creates a new query bus. Middleware wraps every handler
// registered afterwards, the first one outermost.
func NewQueryBus(middleware ...Middleware) *QueryBus {
	return &QueryBus{
		handlers:   make(map[reflect.Type]QueryHandler),
		middleware: middleware,
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i].Wrap(handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask dispatches a query to its handler and returns the result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query handler failed: %w", err)
	}

	return result, nil
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// MetricsMiddleware adds metrics to query handlers
type MetricsMiddleware struct {
	metrics Metrics
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(metrics Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
	}
}

// Wrap wraps a query handler with metrics
func (m *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		queryType := queryName(query)

		timer := m.metrics.StartTimer("query_duration", queryType)
		defer timer.Stop()

		m.metrics.Increment("query_count", queryType)

		result, err := next.Handle(ctx, query)
		if err != nil {
			m.metrics.Increment("query_errors", queryType)
			return nil, err
		}

		m.metrics.Increment("query_success", queryType)
		return result, nil
	})
}

// TracingMiddleware opens a span per query
type TracingMiddleware struct{}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware() *TracingMiddleware {
	return &TracingMiddleware{}
}

// Wrap wraps a query handler with a span
func (m *TracingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		name := queryName(query)
		ctx, span := observability.StartSpan(ctx, "query."+name, attribute.String("query.type", name))

		result, err := next.Handle(ctx, query)
		observability.EndSpan(span, err)
		return result, err
	})
}

func queryName(query Query) string {
	t := reflect.TypeOf(query)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Metrics interface
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer interface
type Timer interface {
	Stop()
}

// CollectorMetrics adapts an observability collector to the bus Metrics
type CollectorMetrics struct {
	collector *observability.Collector
}

// NewCollectorMetrics creates the adapter; a nil collector records nothing
func NewCollectorMetrics(collector *observability.Collector) *CollectorMetrics {
	return &CollectorMetrics{collector: collector}
}

// StartTimer implements Metrics
func (m *CollectorMetrics) StartTimer(metric, label string) Timer {
	return m.collector.StartQueryTimer(label)
}

// Increment implements Metrics
func (m *CollectorMetrics) Increment(metric, label string) {
	switch metric {
	case "query_count":
		m.collector.RecordQuery(label, observability.OutcomeReceived)
	case "query_success":
		m.collector.RecordQuery(label, observability.OutcomeSuccess)
	case "query_errors":
		m.collector.RecordQuery(label, observability.OutcomeError)
	}
}
