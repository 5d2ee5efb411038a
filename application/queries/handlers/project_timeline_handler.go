package handlers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/queries"
	"github.com/santiagotion/sentinel-sub001/application/queries/bus"
	"github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// ProjectTimelineHandler handles timeline projection queries
type ProjectTimelineHandler struct {
	layout  *services.TimelineLayout
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewProjectTimelineHandler creates a new timeline projection handler
func NewProjectTimelineHandler(
	layout *services.TimelineLayout,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ProjectTimelineHandler {
	return &ProjectTimelineHandler{
		layout:  layout,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute projects the query's records
func (h *ProjectTimelineHandler) Execute(ctx context.Context, query queries.ProjectTimelineQuery) (*services.TimelineProjection, error) {
	_, span := observability.StartSpan(ctx, "timeline.project",
		attribute.Int("timeline.events", len(query.Events)),
		attribute.Int("timeline.milestones", len(query.Milestones)),
		attribute.Int("timeline.phases", len(query.Phases)),
		attribute.Float64("timeline.width", query.Width),
		attribute.Float64("timeline.height", query.Height),
	)

	projection, err := h.layout.Project(query.Events, query.Milestones, query.Phases, query.Width, query.Height)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	h.metrics.RecordProjection()
	h.logger.Debug("timeline projected",
		zap.Int("event_points", len(projection.EventPoints)),
		zap.Int("phase_bands", len(projection.PhaseBands)),
		zap.Int("milestone_markers", len(projection.MilestoneMarkers)))

	return projection, nil
}

// Handle implements bus.QueryHandler
func (h *ProjectTimelineHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ProjectTimelineQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	return h.Execute(ctx, q)
}
