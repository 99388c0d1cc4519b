package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
)

// sweepFlags selects the configuration grid for plan and run: a sweep
// file, axis overrides, or both.
type sweepFlags struct {
	// file is the sweep file path (YAML, or JSON with comments).
	file string

	// sizes, blocks and assocs replace the corresponding axis of the
	// sweep file when given.
	sizes  []int
	blocks []int
	assocs []int
}

func (f *sweepFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "sweep", "s", "", "Sweep file (.yaml/.yml or .json/.jsonc)")
	cmd.Flags().IntSliceVar(&f.sizes, "size", nil, "Cache sizes in bytes (overrides the sweep file)")
	cmd.Flags().IntSliceVar(&f.blocks, "block", nil, "Block sizes in bytes (overrides the sweep file)")
	cmd.Flags().IntSliceVar(&f.assocs, "assoc", nil, "Associativities, 0 = fully associative (overrides the sweep file)")
}

// load reads the sweep file, if any, and applies the axis overrides. The
// result is not resolved; callers decide which fields they need.
func (f *sweepFlags) load() (*sweep.Config, error) {
	cfg := &sweep.Config{}
	if f.file != "" {
		loaded, err := sweep.LoadConfig(f.file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		VerboseLog("Loaded sweep file %s", f.file)
	}

	if len(f.sizes) > 0 {
		cfg.Sizes = f.sizes
	}
	if len(f.blocks) > 0 {
		cfg.Blocks = f.blocks
	}
	if len(f.assocs) > 0 {
		cfg.Associativities = f.assocs
	}
	return cfg, nil
}

// gridOf returns the configuration grid, failing when an axis is empty.
func gridOf(cfg *sweep.Config) ([]model.CacheConfig, error) {
	if len(cfg.Sizes) == 0 || len(cfg.Blocks) == 0 || len(cfg.Associativities) == 0 {
		return nil, model.NewCLIError(model.ExitConfigError,
			"sizes, block sizes and associativities are all required (use --sweep or --size/--block/--assoc)")
	}
	return cfg.Grid(), nil
}
