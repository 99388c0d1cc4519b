// Package cli: export.go implements the "cacti-sweep export" command.
//
// The export command flattens a directory of "key value" text files into
// one CSV: the header is "name" plus the sorted keys of the first file, and
// every file becomes one row.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/report"
)

// exportFlags holds the flag values for the export command.
type exportFlags struct {
	// ext restricts the scan to files with this extension, e.g. ".txt".
	ext string

	// output is the CSV destination; "-" or empty writes to stdout.
	output string
}

// NewExportCommand creates the "export" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Flatten a directory of key/value files into CSV",
		Long: `Flatten a directory of key/value text files into a single CSV.

Each non-blank line of a file is "<key> <value>". The column set is taken
from the first file in name order; later files fill the same columns, with
empty cells for keys they lack. Subdirectories are ignored.

Examples:
  cacti-sweep export results/kv
  cacti-sweep export results/kv --ext .txt -o results.csv`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.ext, "ext", "", "Only read files with this extension (e.g. .txt)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "-", "CSV output file, - for stdout")

	return cmd
}

// runExport is the main logic function for the export command.
func runExport(stdout io.Writer, dir string, flags *exportFlags) error {
	table, err := report.ExportKV(dir, flags.ext)
	if err != nil {
		return err
	}
	VerboseLog("Exported %d file(s) with %d column(s)", len(table.Rows), len(table.Header))

	return writeCSVTo(stdout, flags.output, table)
}

// writeCSVTo writes table to path, or to stdout when path is "-" or empty.
func writeCSVTo(stdout io.Writer, path string, table *report.Table) error {
	if path == "" || path == "-" {
		return report.WriteCSV(stdout, table)
	}

	f, err := os.Create(path)
	if err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to create %s", path), err)
	}
	if err := report.WriteCSV(f, table); err != nil {
		_ = f.Close()
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to write %s", path), err)
	}
	if err := f.Close(); err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to close %s", path), err)
	}
	VerboseLog("CSV written to %s", path)
	return nil
}
