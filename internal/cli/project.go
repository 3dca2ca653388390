package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/pkg/config"
	"github.com/vtprint/vtp/pkg/region"
)

// projectFlags locate the project file and override its settings.
type projectFlags struct {
	config          string
	equations       string
	outside         string
	feedMode        string
	features        []string
	workers         int
	keepNozzleCheck bool
}

// register adds -c to cmd. With overrides, the flags that change how a
// program is transformed are added too.
func (f *projectFlags) register(cmd *cobra.Command, overrides bool) {
	cmd.Flags().StringVarP(&f.config, "config", "c", defaultConfig, "project file (.toml, .yaml)")
	cmd.Flags().StringVar(&f.equations, "equations", "", "equation pairs file, overriding the project's")
	if !overrides {
		return
	}
	cmd.Flags().StringVar(&f.outside, "outside", "", "outside policy: baseline, nearest")
	cmd.Flags().StringVar(&f.feedMode, "feed-mode", "", "feed mode: source, volumetric")
	cmd.Flags().StringSliceVar(&f.features, "features", nil, "only transform these features (comma-separated)")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "parallel planning workers (0 = all CPUs)")
	cmd.Flags().BoolVar(&f.keepNozzleCheck, "keep-nozzle-check", false, "keep the slicer's nozzle-check move")
}

// load reads the project file and applies the flags the user set.
func (f *projectFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("equations") {
		abs, err := filepath.Abs(f.equations)
		if err != nil {
			return nil, fmt.Errorf("resolve equations path: %w", err)
		}
		cfg.Equations = abs
	}
	if flags.Changed("outside") {
		cfg.Outside = f.outside
	}
	if flags.Changed("feed-mode") {
		cfg.FeedMode = f.feedMode
	}
	if flags.Changed("features") {
		cfg.Features = f.features
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
		if cfg.Workers == 0 {
			cfg.Workers = runtime.NumCPU()
		}
	}
	if flags.Changed("keep-nozzle-check") {
		cfg.KeepNozzleCheck = f.keepNozzleCheck
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// compileRegions builds the region table, showing a spinner while meshes
// load.
func (c *CLI) compileRegions(ctx context.Context, cfg *config.Config) (*region.Table, error) {
	timer := startStage(loggerFromContext(ctx), "compiled regions")
	spinner := newSpinner(ctx, os.Stderr, "Compiling regions...")
	spinner.Start()
	table, err := cfg.Table()
	if err != nil {
		spinner.Fail("Region compilation failed")
		return nil, fmt.Errorf("compile regions: %w", err)
	}
	spinner.Stop()
	timer.done("regions", table.Len())
	return table, nil
}
