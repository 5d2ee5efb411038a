package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/infrastructure/dataset"
	"github.com/santiagotion/sentinel-sub001/infrastructure/scheduler"
)

type layoutOptions struct {
	dataPath  string
	width     float64
	height    float64
	maxRounds int
}

// layoutOutput is the combined document written by the layout command
type layoutOutput struct {
	Frame    domainservices.Frame               `json:"frame"`
	Timeline *domainservices.TimelineProjection `json:"timeline"`
}

func layoutCmd(root *rootOptions) *cobra.Command {
	opts := &layoutOptions{}

	cmd := &cobra.Command{
		Use:     "layout",
		Short:   "Compute the settled force layout and the timeline projection together",
		Example: "  propagation-viz layout --data scenario.yaml > layout.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ds, err := dataset.LoadFile(opts.dataPath)
			if err != nil {
				return err
			}

			manual := scheduler.NewManualScheduler(cfg.Scheduler.TickInterval.Std())
			container, cleanup, err := bootstrap(cmd.Context(), cfg, manual)
			if err != nil {
				return err
			}
			defer cleanup()

			var out layoutOutput
			var sim *simulationResult
			start := time.Now()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				result, err := runSimulation(ctx, container, manual, ds.GraphInput(), nil, 1, opts.maxRounds)
				if err != nil {
					return fmt.Errorf("simulation failed: %w", err)
				}
				sim = result
				out.Frame = result.Frame
				return nil
			})
			g.Go(func() error {
				projection, err := container.ProjectTimeline(ctx, ds.TimelineQuery(opts.width, opts.height))
				if err != nil {
					return fmt.Errorf("timeline projection failed: %w", err)
				}
				out.Timeline = projection
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			container.Logger.Debug("layout computed", zap.Duration("elapsed", time.Since(start)))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write layout: %w", err)
			}

			printSimulationSummary(cmd.ErrOrStderr(), sim)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Dataset file (json or yaml)")
	cmd.Flags().Float64Var(&opts.width, "width", 800, "Timeline pixel width")
	cmd.Flags().Float64Var(&opts.height, "height", 400, "Timeline pixel height")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", defaultMaxRounds, "Give up after this many ticks")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}
