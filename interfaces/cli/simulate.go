package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/services"
	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/infrastructure/dataset"
	"github.com/santiagotion/sentinel-sub001/infrastructure/di"
	"github.com/santiagotion/sentinel-sub001/infrastructure/scheduler"
	"github.com/santiagotion/sentinel-sub001/interfaces/render"
)

const defaultMaxRounds = 100_000

type simulateOptions struct {
	dataPath   string
	framesPath string
	every      int
	maxRounds  int
}

// simulationResult is what a batch run reports
type simulationResult struct {
	Frame    domainservices.Frame
	Rounds   int
	Written  int
	Settled  bool
	HandleID string
	Dropped  int
}

func simulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the force layout to rest and print the final frame",
		Example: "  propagation-viz simulate --data scenario.yaml\n" +
			"  propagation-viz simulate --data scenario.json --frames run.ndjson --every 10",
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

			var frames io.Writer
			if opts.framesPath != "" {
				f, err := os.Create(opts.framesPath)
				if err != nil {
					return fmt.Errorf("failed to create frame stream: %w", err)
				}
				defer f.Close()
				frames = f
			}

			result, err := runSimulation(cmd.Context(), container, manual, ds.GraphInput(), frames, opts.every, opts.maxRounds)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result.Frame); err != nil {
				return fmt.Errorf("failed to write frame: %w", err)
			}

			printSimulationSummary(cmd.ErrOrStderr(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Dataset file (json or yaml)")
	cmd.Flags().StringVar(&opts.framesPath, "frames", "", "Write the frame stream as NDJSON to this file")
	cmd.Flags().IntVar(&opts.every, "every", 1, "Write every n-th frame to the stream")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", defaultMaxRounds, "Give up after this many ticks")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

// runSimulation mounts the input on a manual scheduler and ticks until the
// layout settles or maxRounds is reached
func runSimulation(
	ctx context.Context,
	container *di.Container,
	manual *scheduler.ManualScheduler,
	input services.GraphInput,
	frames io.Writer,
	every, maxRounds int,
) (*simulationResult, error) {
	var encoder *render.FrameEncoder
	var sink services.FrameFunc
	if frames != nil {
		encoder = render.NewFrameEncoder(frames, every)
		sink = encoder.Sink()
	}

	h, err := container.Visualization.Mount(ctx, input, sink)
	if err != nil {
		return nil, err
	}
	defer h.Dispose()

	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	rounds := manual.Run(maxRounds)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := h.Frame()
	settled := final.State == domainservices.StateSettled
	if !settled {
		container.Logger.Warn("simulation did not settle",
			zap.Int("rounds", rounds),
			zap.Float64("alpha", final.Alpha))
	}

	result := &simulationResult{
		Frame:    final,
		Rounds:   rounds,
		Settled:  settled,
		HandleID: h.ID(),
		Dropped:  h.DroppedEdgeCount(),
	}
	if encoder != nil {
		if err := encoder.Force(final); err != nil {
			return nil, err
		}
		result.Written = encoder.Count()
	}
	return result, nil
}

func printSimulationSummary(w io.Writer, r *simulationResult) {
	rows := []summaryRow{
		{label: "Nodes", value: fmt.Sprint(len(r.Frame.Nodes))},
		{label: "Edges", value: fmt.Sprint(len(r.Frame.Edges))},
		{label: "Dropped edges", value: fmt.Sprint(r.Dropped), warn: r.Dropped > 0},
		{label: "Ticks", value: fmt.Sprint(r.Rounds)},
		{label: "State", value: stateColor(r.Settled).Sprint(r.Frame.State)},
	}
	if r.Written > 0 {
		rows = append(rows, summaryRow{label: "Frames written", value: fmt.Sprint(r.Written)})
	}
	printSummary(w, "simulation "+r.HandleID, rows)
}
