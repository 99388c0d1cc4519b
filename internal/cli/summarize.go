// Package cli: summarize.go implements the "cacti-sweep summarize" command.
//
// The summarize command reads every *.out file of a result directory,
// classifies it (valid, invalid, error), extracts the CACTI metrics of valid
// reports and writes one table as CSV or into a new SQLite database.
// --stats adds descriptive statistics over the valid rows.
package cli

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/report"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
)

// Output formats accepted by --format.
const (
	formatCSV    = "csv"
	formatSQLite = "sqlite"
)

// defaultSummaryFile is where the summary goes when --output is not given.
const defaultSummaryFile = "cacti_results_summary.csv"

// summarizeFlags holds the flag values for the summarize command.
type summarizeFlags struct {
	// output is the destination file; "-" writes CSV to stdout.
	output string

	// format is "csv" or "sqlite"; empty infers it from the output extension.
	format string

	stats bool
}

// NewSummarizeCommand creates the "summarize" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewSummarizeCommand() *cobra.Command {
	flags := &summarizeFlags{}

	cmd := &cobra.Command{
		Use:   "summarize [result-dir]",
		Short: "Summarize CACTI result files into one table",
		Long: `Summarize the *.out files of a result directory (default "` + sweep.DefaultOutputDir + `").

Each file is classified as valid, invalid (pre-detected by cacti-sweep) or
error (CACTI failed). Valid reports contribute access and cycle time, read
and write energy, leakage power, area (height x width) and the
access/cycle efficiency ratio. Missing values are written as N/A.

The SQLite format writes a table named "results" into a new database file;
an existing file is never overwritten.

Examples:
  cacti-sweep summarize
  cacti-sweep summarize resultados_cacti -o summary.sqlite3 --stats
  cacti-sweep summarize resultados_cacti -o - --format csv`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			dir := sweep.DefaultOutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runSummarize(cmd, dir, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", defaultSummaryFile, "Output file, - for CSV on stdout")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: csv or sqlite (default: from the output extension)")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "Print count/mean/std/min/max of the numeric metrics of valid results")

	return cmd
}

// outputFormat picks the output format from the flag or, when it is
// empty, from the file extension.
func outputFormat(format, output string) (string, error) {
	switch strings.ToLower(format) {
	case formatCSV:
		return formatCSV, nil
	case formatSQLite:
		if output == "-" {
			return "", model.NewCLIError(model.ExitGeneralError, "sqlite output needs a file, not stdout")
		}
		return formatSQLite, nil
	case "":
	default:
		return "", model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid format %q: valid values are csv, sqlite", format))
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".sqlite", ".sqlite3", ".db":
		return formatSQLite, nil
	default:
		return formatCSV, nil
	}
}

// runSummarize is the main logic function for the summarize command.
func runSummarize(cmd *cobra.Command, dir string, flags *summarizeFlags) error {
	format, err := outputFormat(flags.format, flags.output)
	if err != nil {
		return err
	}

	metrics, err := report.Summarize(dir)
	if err != nil {
		return err
	}
	VerboseLog("Parsed %d result file(s) in %s", len(metrics), dir)

	table := report.MetricsTable(metrics)
	if format == formatSQLite {
		err = report.WriteSQLite(cmd.Context(), flags.output, table)
	} else {
		err = writeCSVTo(cmd.OutOrStdout(), flags.output, table)
	}
	if err != nil {
		return err
	}

	var stats []report.Stats
	if flags.stats {
		stats = report.Describe(metrics)
	}

	// With CSV on stdout the summary goes to stderr to keep the CSV clean.
	w := cmd.OutOrStdout()
	if flags.output == "-" {
		w = cmd.ErrOrStderr()
	}
	if IsJSONOutput() {
		return printSummarizeResultJSON(w, metrics, flags.output, format, stats)
	}
	return printSummarizeResultText(w, metrics, flags.output, stats)
}

func printSummarizeResultJSON(w io.Writer, metrics []report.Metrics, output, format string, stats []report.Stats) error {
	type resultJSON struct {
		Files   int            `json:"files"`
		Valid   int            `json:"valid"`
		Invalid int            `json:"invalid"`
		Error   int            `json:"error"`
		Output  string         `json:"output"`
		Format  string         `json:"format"`
		Stats   []report.Stats `json:"stats,omitempty"`
	}
	return printJSON(w, resultJSON{
		Files:   len(metrics),
		Valid:   report.CountStatus(metrics, report.StatusValid),
		Invalid: report.CountStatus(metrics, report.StatusInvalid),
		Error:   report.CountStatus(metrics, report.StatusError),
		Output:  output,
		Format:  format,
		Stats:   stats,
	})
}

func printSummarizeResultText(w io.Writer, metrics []report.Metrics, output string, stats []report.Stats) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d result file(s)\n", len(metrics))
	fmt.Fprintf(&b, "  valid:   %d\n", report.CountStatus(metrics, report.StatusValid))
	fmt.Fprintf(&b, "  invalid: %d\n", report.CountStatus(metrics, report.StatusInvalid))
	fmt.Fprintf(&b, "  error:   %d\n", report.CountStatus(metrics, report.StatusError))
	if output != "-" {
		fmt.Fprintf(&b, "Summary written to %s\n", output)
	}

	if len(stats) > 0 {
		fmt.Fprintf(&b, "\n%-14s %6s %12s %12s %12s %12s\n", "METRIC", "COUNT", "MEAN", "STD", "MIN", "MAX")
		for _, s := range stats {
			fmt.Fprintf(&b, "%-14s %6d %12s %12s %12s %12s\n",
				s.Column, s.Count, FormatStat(s.Mean), FormatStat(s.Std), FormatStat(s.Min), FormatStat(s.Max))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatStat renders a statistic with six significant digits, "-" for NaN.
func FormatStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}
