// Package cli: plan.go implements the "cacti-sweep plan" command.
//
// The plan command expands a sweep into its configuration grid and shows
// which configurations would run and which would be stamped as invalid,
// without touching the file system or invoking CACTI.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
)

// planFlags holds the flag values for the plan command.
type planFlags struct {
	sweepFlags

	// invalidOnly restricts the output to rejected configurations.
	invalidOnly bool
}

// NewPlanCommand creates the "plan" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewPlanCommand() *cobra.Command {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the configuration grid of a sweep and each verdict",
		Long: `Expand a sweep into its configurations (sizes x blocks x associativities,
in the given order) and evaluate the validity predicate for each.

Examples:
  cacti-sweep plan --sweep sweep.yaml
  cacti-sweep plan --size 2048 --block 16,32,64,128 --assoc 0,1,2,4,8
  cacti-sweep plan --sweep sweep.yaml --invalid-only --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.OutOrStdout(), flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.invalidOnly, "invalid-only", false, "Only list configurations that would be rejected")

	return cmd
}

// runPlan is the main logic function for the plan command.
func runPlan(w io.Writer, flags *planFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	configs, err := gridOf(cfg)
	if err != nil {
		return err
	}

	verdicts := sweep.Plan(configs)
	VerboseLog("Grid has %d configuration(s)", len(verdicts))

	total, valid := len(verdicts), 0
	for _, v := range verdicts {
		if v.Valid() {
			valid++
		}
	}

	if flags.invalidOnly {
		filtered := make([]model.Verdict, 0, total-valid)
		for _, v := range verdicts {
			if !v.Valid() {
				filtered = append(filtered, v)
			}
		}
		verdicts = filtered
	}

	if IsJSONOutput() {
		return printPlanResultJSON(w, verdicts, total, valid)
	}
	return printPlanResultText(w, verdicts, total, valid)
}

func printPlanResultJSON(w io.Writer, verdicts []model.Verdict, total, valid int) error {
	type resultJSON struct {
		Total          int           `json:"total"`
		Valid          int           `json:"valid"`
		Invalid        int           `json:"invalid"`
		Configurations []verdictJSON `json:"configurations"`
	}

	result := resultJSON{
		Total:          total,
		Valid:          valid,
		Invalid:        total - valid,
		Configurations: make([]verdictJSON, 0, len(verdicts)),
	}
	for _, v := range verdicts {
		result.Configurations = append(result.Configurations, newVerdictJSON(v))
	}
	return printJSON(w, result)
}

// printPlanResultText outputs the plan as an aligned table:
//
//	CONFIG             STATUS   BLOCKS  SETS  REASON
//	cacti_2048_32_1    valid    64      64    -
//	cacti_2048_128_0   invalid  16      1     fully associative cache with block 128 B > 64 B does not converge
func printPlanResultText(w io.Writer, verdicts []model.Verdict, total, valid int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %-8s %-7s %-6s %s\n", "CONFIG", "STATUS", "BLOCKS", "SETS", "REASON")
	for _, v := range verdicts {
		status := "valid"
		if !v.Valid() {
			status = "invalid"
		}
		fmt.Fprintf(&b, "%-22s %-8s %-7d %-6d %s\n",
			v.Config.Stem(), status, v.Config.BlockCount(), v.Config.SetCount(), FormatReasons(v.Reasons()))
	}
	fmt.Fprintf(&b, "\n%d configuration(s): %d would run, %d pre-detected invalid\n", total, valid, total-valid)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatReasons joins violation reasons for a single table cell.
// Returns "-" when there are none.
func FormatReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "-"
	}
	return strings.Join(reasons, "; ")
}
