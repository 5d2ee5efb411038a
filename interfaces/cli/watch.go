package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/services"
	"github.com/santiagotion/sentinel-sub001/infrastructure/config"
	"github.com/santiagotion/sentinel-sub001/infrastructure/dataset"
	"github.com/santiagotion/sentinel-sub001/infrastructure/di"
	"github.com/santiagotion/sentinel-sub001/infrastructure/scheduler"
	"github.com/santiagotion/sentinel-sub001/interfaces/http/ops"
	"github.com/santiagotion/sentinel-sub001/interfaces/render"
)

type watchOptions struct {
	dataPath    string
	framesPath  string
	every       int
	metricsAddr string
}

func watchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the layout in real time and re-layout when the dataset changes",
		Long: "Runs the simulation on a real-time ticker and streams frames as NDJSON.\n" +
			"Edits to the dataset file are applied as structural changes, which reheat the layout.",
		Example: "  propagation-viz watch --data scenario.yaml --every 4 --metrics-addr :9090",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if opts.metricsAddr != "" {
				cfg.Metrics.Addr = opts.metricsAddr
			}
			if cfg.Metrics.Addr != "" {
				cfg.Metrics.Enabled = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if opts.framesPath != "" {
				f, err := os.Create(opts.framesPath)
				if err != nil {
					return fmt.Errorf("failed to create frame stream: %w", err)
				}
				defer f.Close()
				out = f
			}

			ticker := scheduler.NewTickerScheduler(cfg.Scheduler.TickInterval.Std())
			container, cleanup, err := bootstrap(ctx, cfg, ticker)
			if err != nil {
				return err
			}
			defer cleanup()

			return runWatch(ctx, container, opts.dataPath, out, opts.every)
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Dataset file (json or yaml)")
	cmd.Flags().StringVar(&opts.framesPath, "frames", "", "Write frames to this file instead of stdout")
	cmd.Flags().IntVar(&opts.every, "every", 1, "Write every n-th frame")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics, /health, /ready and /status on this address")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

// runWatch mounts the dataset and blocks until ctx is cancelled
func runWatch(ctx context.Context, container *di.Container, dataPath string, out io.Writer, every int) error {
	logger := container.Logger

	ds, err := dataset.LoadFile(dataPath)
	if err != nil {
		return err
	}

	encoder := render.NewFrameEncoder(out, every)
	h, err := container.Visualization.Mount(ctx, ds.GraphInput(), encoder.Sink())
	if err != nil {
		return err
	}
	// The caller closes out once we return
	defer func() {
		h.Dispose()
		h.Wait()
	}()

	reload := func(path string) {
		next, err := dataset.LoadFile(path)
		if err != nil {
			logger.Error("Failed to reload dataset", zap.String("file", path), zap.Error(err))
			return
		}
		if err := container.Visualization.Rebuild(ctx, h, next.GraphInput()); err != nil {
			logger.Error("Failed to apply dataset", zap.String("file", path), zap.Error(err))
			return
		}
		logger.Info("Dataset reloaded",
			zap.String("file", path),
			zap.Int("events", len(next.Events)),
			zap.Int("dropped_edge_count", h.DroppedEdgeCount()))
	}

	watcher, err := config.NewFileWatcher([]string{dataPath}, container.Config.Watch.Debounce.Std(), reload, logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if addr := container.Config.Metrics.Addr; addr != "" {
		shutdown := serveOps(ctx, addr, container, h)
		defer shutdown()
	}

	<-ctx.Done()
	logger.Info("Stopping", zap.Int("frames_written", encoder.Count()))
	return encoder.Err()
}

// serveOps starts the ops router in the background and returns its
// shutdown function
func serveOps(ctx context.Context, addr string, container *di.Container, h *services.Handle) func() {
	logger := container.Logger

	status := func() (ops.Status, bool) {
		if h.Disposed() {
			return ops.Status{}, false
		}
		frame := h.Frame()
		return ops.Status{
			HandleID:     h.ID(),
			State:        frame.State,
			Alpha:        frame.Alpha,
			Nodes:        len(frame.Nodes),
			Edges:        len(frame.Edges),
			DroppedEdges: h.DroppedEdgeCount(),
		}, true
	}

	router := ops.NewRouter(container.Metrics, status, container.Config.Metrics.AllowedOrigins, logger)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving ops endpoints", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown failed", zap.Error(err))
		}
	}
}
