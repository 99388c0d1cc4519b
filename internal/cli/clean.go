// Package cli: clean.go implements the "cacti-sweep clean" command.
//
// The container backend removes each container once its invocation
// finishes. A sweep killed hard (or a daemon hiccup during removal) can
// leave containers behind; clean finds them by their cacti-sweep labels
// and force-removes them.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cacti-sweep/internal/docker"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// batch limits removal to the containers of one sweep.
	batch string

	// dryRun lists the containers without removing them.
	dryRun bool

	// force skips the interactive confirmation prompt when true.
	force bool
}

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove containers left behind by interrupted sweeps",
		Long: `Remove CACTI containers created by cacti-sweep that are still present on
the Docker daemon, running or exited.

Unless --force is specified, the command prompts for confirmation.

Examples:
  cacti-sweep clean --dry-run
  cacti-sweep clean --batch cs1m4kq0fh3g0b6lu8q0 --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.batch, "batch", "", "Only remove containers of this batch ID")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List containers without removing them")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove without confirmation")

	return cmd
}

// runClean is the main logic function for the clean command.
func runClean(ctx context.Context, in io.Reader, out io.Writer, flags *cleanFlags) error {
	// Step 1: Connect to Docker and verify the daemon is available.
	cli, err := docker.NewClient()
	if err != nil {
		return err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	VerboseLog("Connected to Docker daemon")

	// Step 2: Find leftover containers.
	containers, err := docker.ListManagedContainers(ctx, cli, flags.batch)
	if err != nil {
		return err
	}
	VerboseLog("Found %d managed container(s)", len(containers))

	if len(containers) == 0 || flags.dryRun {
		return printCleanResult(out, containers, false)
	}

	// Step 3: Confirm, unless --force or JSON output (no one to ask).
	if !flags.force && !IsJSONOutput() {
		ok, err := promptConfirmation(in, out, len(containers))
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(out, "Aborted.")
			return err
		}
	}

	// Step 4: Remove. A failure on one container does not stop the others.
	removed := make([]docker.ManagedContainer, 0, len(containers))
	var firstErr error
	for _, c := range containers {
		if err := docker.RemoveContainer(ctx, cli, c.ID, true); err != nil {
			Logger().Sugar().Warnf("failed to remove %s: %v", c.Name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, c)
	}

	if err := printCleanResult(out, removed, true); err != nil {
		return err
	}
	return firstErr
}

// promptConfirmation asks the user to confirm the removal.
// It reads a single line and checks for "y" or "yes".
func promptConfirmation(in io.Reader, out io.Writer, count int) (bool, error) {
	fmt.Fprintf(out, "About to force-remove %d container(s).\nContinue? [y/N] ", count)

	// bufio.Scanner handles different line endings across platforms.
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}

	// If stdin is closed or an error occurred, treat it as "no".
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// printCleanResult outputs the listed or removed containers in text or
// JSON format.
func printCleanResult(w io.Writer, containers []docker.ManagedContainer, removed bool) error {
	if IsJSONOutput() {
		type containerJSON struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			State  string `json:"state"`
			Batch  string `json:"batch"`
			Config string `json:"config"`
		}
		type resultJSON struct {
			Removed    bool            `json:"removed"`
			Containers []containerJSON `json:"containers"`
		}

		result := resultJSON{Removed: removed, Containers: make([]containerJSON, 0, len(containers))}
		for _, c := range containers {
			result.Containers = append(result.Containers, containerJSON{
				ID:     c.ID,
				Name:   c.Name,
				State:  c.State,
				Batch:  c.BatchID,
				Config: c.Config.Stem(),
			})
		}
		return printJSON(w, result)
	}

	if len(containers) == 0 {
		_, err := fmt.Fprintln(w, "No cacti-sweep containers found.")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-22s %-10s %s\n", "ID", "BATCH", "STATE", "CONFIG")
	for _, c := range containers {
		fmt.Fprintf(&b, "%-12s %-22s %-10s %s\n", ShortID(c.ID), c.BatchID, c.State, c.Config.Stem())
	}
	if removed {
		fmt.Fprintf(&b, "\nRemoved %d container(s)\n", len(containers))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ShortID truncates a container ID to the 12 characters docker ps shows.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
