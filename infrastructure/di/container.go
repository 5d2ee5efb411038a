package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/application/queries"
	querybus "github.com/santiagotion/sentinel-sub001/application/queries/bus"
	"github.com/santiagotion/sentinel-sub001/application/services"
	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/infrastructure/config"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *observability.Collector
	Tracing        *observability.TracerProvider
	Scheduler      ports.Scheduler
	TimelineLayout *domainservices.TimelineLayout
	QueryBus       *querybus.QueryBus
	Visualization  *services.VisualizationService
}

// ProjectTimeline runs a timeline projection through the query bus
func (c *Container) ProjectTimeline(ctx context.Context, q queries.ProjectTimelineQuery) (*domainservices.TimelineProjection, error) {
	result, err := c.QueryBus.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	projection, ok := result.(*domainservices.TimelineProjection)
	if !ok {
		return nil, fmt.Errorf("unexpected timeline result %T", result)
	}
	return projection, nil
}
