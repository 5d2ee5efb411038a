package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/infrastructure/config"
	"github.com/santiagotion/sentinel-sub001/infrastructure/di"
)

var version = "0.3.0"

// rootOptions are the global flags
type rootOptions struct {
	configPath string
	configDir  string
	env        string
	logLevel   string
}

// NewRootCommand builds the propagation-viz command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "propagation-viz",
		Short: "Force layout and timeline projection for propagation graphs",
		Long: Brand.Sprint("propagation-viz") + " lays out account/event propagation graphs\n" +
			Subtle.Sprint("Frames are written as NDJSON for any renderer to draw"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "config", "Directory searched for base.* and <env>.* when --config is not set")
	cmd.PersistentFlags().StringVar(&opts.env, "env", "", "Environment (development, staging, production, large, test)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		simulateCmd(opts),
		timelineCmd(opts),
		layoutCmd(opts),
		watchCmd(opts),
	)

	return cmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig resolves the configuration from the global flags
func (o *rootOptions) loadConfig() (*config.Config, error) {
	env := o.env
	if env == "" {
		env = config.EnvironmentFromEnv()
	}

	loader := config.NewLoader(o.configDir, env)

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = loader.LoadFile(o.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// bootstrap wires a container around the given scheduler
func bootstrap(ctx context.Context, cfg *config.Config, scheduler ports.Scheduler) (*di.Container, func(), error) {
	container, cleanup, err := di.InitializeContainer(ctx, cfg, scheduler)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return container, cleanup, nil
}
