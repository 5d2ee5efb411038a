//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideTimelineLayout,
	ProvideQueryBus,
	ProvideVisualizationService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The scheduler is
// chosen by the caller: real-time for interactive use, manual for batch runs.
func InitializeContainer(ctx context.Context, cfg *config.Config, scheduler ports.Scheduler) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
