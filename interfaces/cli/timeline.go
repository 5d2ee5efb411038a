package cli

import (
	"github.com/spf13/cobra"

	"github.com/santiagotion/sentinel-sub001/infrastructure/dataset"
	"github.com/santiagotion/sentinel-sub001/infrastructure/scheduler"
	"github.com/santiagotion/sentinel-sub001/interfaces/render"
)

type timelineOptions struct {
	dataPath string
	width    float64
	height   float64
}

func timelineCmd(root *rootOptions) *cobra.Command {
	opts := &timelineOptions{}

	cmd := &cobra.Command{
		Use:     "timeline",
		Short:   "Project events, milestones and phases onto a pixel area",
		Example: "  propagation-viz timeline --data scenario.yaml --width 800 --height 400",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ds, err := dataset.LoadFile(opts.dataPath)
			if err != nil {
				return err
			}

			container, cleanup, err := bootstrap(cmd.Context(), cfg, scheduler.NewManualScheduler(0))
			if err != nil {
				return err
			}
			defer cleanup()

			projection, err := container.ProjectTimeline(cmd.Context(), ds.TimelineQuery(opts.width, opts.height))
			if err != nil {
				return err
			}
			return render.WriteProjection(cmd.OutOrStdout(), projection)
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Dataset file (json or yaml)")
	cmd.Flags().Float64Var(&opts.width, "width", 800, "Pixel width")
	cmd.Flags().Float64Var(&opts.height, "height", 400, "Pixel height")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}
