package runner

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Suspected causes recorded for failed invocations.
const (
	CauseNoOrganization = "no valid data array organization for this geometry"
	CauseUnknown        = "unknown; see tool output above"

	// CauseInterrupted marks an invocation cut short by cancellation of
	// the sweep rather than by the tool or the timeout.
	CauseInterrupted = "interrupted"
)

// Diagnose guesses why an invocation failed from the captured output,
// the exit status and the backend error (nil when the tool exited on its own).
func Diagnose(output []byte, runErr error, timedOut bool) string {
	switch {
	case timedOut:
		return "timed out; the organization search did not finish"
	case runErr != nil:
		return fmt.Sprintf("tool could not be run: %v", runErr)
	case bytes.Contains(output, []byte(model.ToolNoOrganization)):
		return CauseNoOrganization
	default:
		return CauseUnknown
	}
}

// WriteInvalidStamp writes the file content for a configuration the
// validity predicate rejected. Reasons come last, one per line, so that
// the text following the first reason marker is exactly that reason.
func WriteInvalidStamp(w io.Writer, verdict model.Verdict) error {
	var b strings.Builder
	cfg := verdict.Config

	b.WriteString(model.MarkerInvalidStamp + "\n")
	writeParameters(&b, cfg)
	for _, reason := range verdict.Reasons() {
		fmt.Fprintf(&b, "%s %s\n", model.MarkerReason, reason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFailureBlock appends the diagnostic block for a failed invocation
// after the tool's own output.
func WriteFailureBlock(w io.Writer, cfg model.CacheConfig, exitCode int, cause string) error {
	var b strings.Builder

	b.WriteString("\n==== " + model.MarkerRunError + " ====\n")
	writeParameters(&b, cfg)
	fmt.Fprintf(&b, "block count: %d\n", cfg.BlockCount())
	fmt.Fprintf(&b, "set count: %d\n", cfg.SetCount())
	if exitCode >= 0 {
		fmt.Fprintf(&b, "exit status: %d\n", exitCode)
	} else {
		b.WriteString("exit status: none\n")
	}
	fmt.Fprintf(&b, "suspected cause: %s\n", cause)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeParameters(b *strings.Builder, cfg model.CacheConfig) {
	fmt.Fprintf(b, "size (bytes): %d\n", cfg.Size)
	fmt.Fprintf(b, "block size (bytes): %d\n", cfg.BlockSize)
	if cfg.FullyAssociative() {
		fmt.Fprintf(b, "associativity: %d (fully associative)\n", cfg.Associativity)
	} else {
		fmt.Fprintf(b, "associativity: %d\n", cfg.Associativity)
	}
}
