package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/application/queries"
	"github.com/santiagotion/sentinel-sub001/application/queries/bus"
	"github.com/santiagotion/sentinel-sub001/domain/config"
	"github.com/santiagotion/sentinel-sub001/domain/core/aggregates"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// GraphInput is the record set a visualization is mounted with
type GraphInput struct {
	Accounts      []entities.AccountRecord      `json:"accounts" yaml:"accounts"`
	Events        []entities.EventRecord        `json:"events" yaml:"events"`
	Relationships []entities.RelationshipRecord `json:"relationships" yaml:"relationships"`
}

// VisualizationService mounts force-layout visualizations
type VisualizationService struct {
	layout    *config.LayoutConfig
	queryBus  *bus.QueryBus
	scheduler ports.Scheduler
	interval  time.Duration
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewVisualizationService creates the service. The layout config is
// validated here so misconfiguration fails before anything is mounted.
func NewVisualizationService(
	layout *config.LayoutConfig,
	queryBus *bus.QueryBus,
	scheduler ports.Scheduler,
	interval time.Duration,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*VisualizationService, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if queryBus == nil || scheduler == nil {
		return nil, pkgerrors.NewConfigurationError("query bus and scheduler are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisualizationService{
		layout:    layout.Clone(),
		queryBus:  queryBus,
		scheduler: scheduler,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// BuildGraph runs the graph build query
func (s *VisualizationService) BuildGraph(ctx context.Context, input GraphInput) (*queries.BuildGraphResult, error) {
	result, err := s.queryBus.Ask(ctx, queries.BuildGraphQuery{
		Accounts:      input.Accounts,
		Events:        input.Events,
		Relationships: input.Relationships,
	})
	if err != nil {
		return nil, err
	}
	built, ok := result.(*queries.BuildGraphResult)
	if !ok {
		return nil, fmt.Errorf("unexpected graph build result %T", result)
	}
	return built, nil
}

// Mount builds the graph, starts the simulation and registers its tick
// callback. The returned handle is disposed when ctx is cancelled.
func (s *VisualizationService) Mount(ctx context.Context, input GraphInput, onFrame FrameFunc) (*Handle, error) {
	ctx, span := observability.StartSpan(ctx, "visualization.mount")

	if err := ctx.Err(); err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	built, err := s.BuildGraph(ctx, input)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	handle, err := s.mountGraph(ctx, built.Graph, onFrame)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("handle.id", handle.id),
		attribute.Int("graph.nodes", built.Statistics.NodeCount),
		attribute.Int("graph.edges", built.Statistics.EdgeCount),
	)
	observability.EndSpan(span, nil)
	return handle, nil
}

func (s *VisualizationService) mountGraph(ctx context.Context, graph *aggregates.Graph, onFrame FrameFunc) (*Handle, error) {
	id := uuid.New().String()
	logger := s.logger.With(zap.String("handle_id", id))

	sim, err := domainservices.NewForceSimulation(graph, s.layout, domainservices.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:        id,
		sim:       sim,
		ctrl:      domainservices.NewInteractionController(sim, logger),
		scheduler: s.scheduler,
		interval:  s.interval,
		onFrame:   onFrame,
		metrics:   s.metrics,
		logger:    logger,
	}

	s.metrics.HandleMounted()

	h.mu.Lock()
	sim.Start()
	h.register()
	h.stopCtx = context.AfterFunc(ctx, h.Dispose)
	h.mu.Unlock()

	logger.Info("visualization mounted",
		zap.Int("node_count", graph.NodeCount()),
		zap.Int("edge_count", graph.EdgeCount()),
		zap.Int("dropped_edge_count", graph.DroppedEdgeCount()))

	return h, nil
}

// Rebuild rebuilds the graph from new records and applies it to a mounted
// handle as a structural change
func (s *VisualizationService) Rebuild(ctx context.Context, h *Handle, input GraphInput) error {
	built, err := s.BuildGraph(ctx, input)
	if err != nil {
		return err
	}
	return h.SetGraph(built.Graph)
}
