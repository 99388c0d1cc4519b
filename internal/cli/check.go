// Package cli: check.go implements the "cacti-sweep check" command.
//
// The check command evaluates the validity predicate for a single
// (size, block size, associativity) triple and prints the verdict with
// every violated rule. It never invokes CACTI.
package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
)

// NewCheckCommand creates the "check" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <size> <block-size> <associativity>",
		Short: "Check whether one cache configuration can be simulated",
		Long: `Check one cache configuration against the rules CACTI is known to
reject. Sizes are in bytes; associativity 0 means fully associative.

Exits with status 6 when the configuration is rejected.

Examples:
  cacti-sweep check 2048 32 1
  cacti-sweep check 2048 128 0 --json`,

		// Exactly three positional arguments are required.
		Args: cobra.ExactArgs(3),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseTriple(args)
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), cfg)
		},
	}
}

// parseTriple converts the positional arguments into a configuration.
func parseTriple(args []string) (model.CacheConfig, error) {
	names := []string{"size", "block size", "associativity"}
	values := make([]int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return model.CacheConfig{}, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid %s %q: must be an integer", names[i], arg), err)
		}
		values[i] = n
	}
	return model.CacheConfig{Size: values[0], BlockSize: values[1], Associativity: values[2]}, nil
}

// runCheck is the main logic function for the check command.
func runCheck(w io.Writer, cfg model.CacheConfig) error {
	verdict := sweep.Check(cfg)
	VerboseLog("Checked %s: %d violation(s)", cfg, len(verdict.Violations))

	var err error
	if IsJSONOutput() {
		err = printJSON(w, newVerdictJSON(verdict))
	} else {
		err = printVerdictText(w, verdict)
	}
	if err != nil {
		return err
	}

	if !verdict.Valid() {
		return model.NewCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("configuration %s is not simulatable", cfg.Stem()))
	}
	return nil
}

// verdictJSON is the JSON output structure for one verdict, shared by the
// check and plan commands.
type verdictJSON struct {
	Config        string          `json:"config"`
	Size          int             `json:"size"`
	BlockSize     int             `json:"blockSize"`
	Associativity int             `json:"associativity"`
	BlockCount    int             `json:"blockCount"`
	SetCount      int             `json:"setCount"`
	Valid         bool            `json:"valid"`
	Violations    []violationJSON `json:"violations"`
}

type violationJSON struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

func newVerdictJSON(v model.Verdict) verdictJSON {
	out := verdictJSON{
		Config:        v.Config.Stem(),
		Size:          v.Config.Size,
		BlockSize:     v.Config.BlockSize,
		Associativity: v.Config.Associativity,
		BlockCount:    v.Config.BlockCount(),
		SetCount:      v.Config.SetCount(),
		Valid:         v.Valid(),
		// Use an empty slice instead of nil so JSON shows [] for valid configs.
		Violations: make([]violationJSON, 0, len(v.Violations)),
	}
	for _, violation := range v.Violations {
		out.Violations = append(out.Violations, violationJSON{
			Rule:   violation.Rule.String(),
			Reason: violation.Reason,
		})
	}
	return out
}

// printVerdictText outputs a verdict as human-readable text:
//
//	cacti_2048_128_8: invalid (16 blocks, 2 sets)
//	  - block 128 B with associativity 8 >= 8 exceeds the realizable array space
func printVerdictText(w io.Writer, v model.Verdict) error {
	status := "valid"
	if !v.Valid() {
		status = "invalid"
	}
	if _, err := fmt.Fprintf(w, "%s: %s (%d blocks, %d sets)\n",
		v.Config.Stem(), status, v.Config.BlockCount(), v.Config.SetCount()); err != nil {
		return err
	}
	for _, reason := range v.Reasons() {
		if _, err := fmt.Fprintf(w, "  - %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}
