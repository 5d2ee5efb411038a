package handlers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/queries"
	"github.com/santiagotion/sentinel-sub001/application/queries/bus"
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// BuildGraphHandler handles graph build queries
type BuildGraphHandler struct {
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewBuildGraphHandler creates a new graph build handler
func NewBuildGraphHandler(metrics *observability.Collector, logger *zap.Logger) *BuildGraphHandler {
	return &BuildGraphHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// Execute builds the graph from the query's records
func (h *BuildGraphHandler) Execute(ctx context.Context, query queries.BuildGraphQuery) (*queries.BuildGraphResult, error) {
	_, span := observability.StartSpan(ctx, "graph.build",
		attribute.Int("records.accounts", len(query.Accounts)),
		attribute.Int("records.events", len(query.Events)),
		attribute.Int("records.relationships", len(query.Relationships)),
	)

	graph := aggregates.BuildGraph(query.Accounts, query.Events, query.Relationships)
	if err := graph.Validate(); err != nil {
		observability.EndSpan(span, err)
		return nil, fmt.Errorf("built graph is inconsistent: %w", err)
	}

	stats := graph.Statistics()
	span.SetAttributes(
		attribute.Int("graph.nodes", stats.NodeCount),
		attribute.Int("graph.edges", stats.EdgeCount),
		attribute.Int("graph.dropped_edges", stats.DroppedEdgeCount),
	)
	observability.EndSpan(span, nil)

	h.metrics.RecordDroppedEdges(graph.DroppedEdgeCount())
	if graph.DroppedEdgeCount() > 0 || graph.SkippedRecordCount() > 0 {
		h.logger.Debug("graph built with rejected records",
			zap.Int("dropped_edge_count", graph.DroppedEdgeCount()),
			zap.Int("skipped_record_count", graph.SkippedRecordCount()))
	}

	return &queries.BuildGraphResult{
		Graph:      graph,
		Statistics: stats,
		Skipped:    graph.SkippedRecordCount(),
	}, nil
}

// Handle implements bus.QueryHandler
func (h *BuildGraphHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.BuildGraphQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	return h.Execute(ctx, q)
}
