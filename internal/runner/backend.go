package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Invocation describes one call of the external tool.
type Invocation struct {
	// BatchID identifies the sweep this invocation belongs to.
	BatchID string

	Config model.CacheConfig

	// ConfigPath is the absolute path of the rendered CACTI config.
	ConfigPath string
}

// Backend executes CACTI for one configuration.
//
// Run writes the tool's stdout and stderr, interleaved as produced, to out
// and blocks until the tool exits. It returns the exit status when the
// tool ran to completion (zero or not); a non-nil error means the tool
// could not be started or the wait was interrupted, in which case the
// exit status is -1.
type Backend interface {
	Name() string
	Run(ctx context.Context, inv Invocation, out io.Writer) (int, error)
}

// waitDelay bounds how long Wait blocks on output pipes after the tool
// has exited or been killed, in case it left children holding them.
const waitDelay = 5 * time.Second

// LocalBackend runs the CACTI binary as a child process.
type LocalBackend struct {
	// Binary is the resolved path of the executable.
	Binary string

	// WorkDir is the working directory of the child. CACTI resolves its
	// technology parameter files relative to it.
	WorkDir string
}

// NewLocalBackend resolves binary (a path or a command name looked up in
// PATH) and returns a backend for it. The child runs in the binary's own
// directory when binary is given as a path, and in the current directory
// when it is found through PATH.
//
// Returns a CLIError with ExitToolNotFound if the binary cannot be found
// or is not executable.
func NewLocalBackend(binary string) (*LocalBackend, error) {
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitToolNotFound,
			fmt.Sprintf("CACTI binary %q not found (set it in the sweep file, --cacti, or CACTI_BIN)", binary), err)
	}

	b := &LocalBackend{Binary: resolved}
	if strings.ContainsRune(binary, filepath.Separator) {
		abs, err := filepath.Abs(resolved)
		if err == nil {
			b.Binary = abs
			b.WorkDir = filepath.Dir(abs)
		}
	}
	return b, nil
}

// Name implements Backend.
func (b *LocalBackend) Name() string {
	return "local"
}

// Run implements Backend by running "<binary> -infile <config>".
func (b *LocalBackend) Run(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	// #nosec G204 -- the binary comes from the operator's sweep file
	cmd := exec.CommandContext(ctx, b.Binary, "-infile", inv.ConfigPath)
	cmd.Dir = b.WorkDir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A context kill also surfaces as an ExitError; report it as an
		// interruption rather than a tool failure.
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to start %s: %w", b.Binary, err)
}
