// Package cli: run.go implements the "cacti-sweep run" command.
//
// The run command executes a sweep:
//  1. Resolve the sweep (file, flag overrides, environment defaults)
//  2. Load the base CACTI config template
//  3. Select the backend: local binary, or a container image via Docker
//  4. Run every configuration of the grid in order, one at a time
//  5. Print the batch result
//
// Invalid configurations are stamped instead of executed and failing CACTI
// invocations are recorded; neither stops the sweep. Ctrl-C stops it after
// the configuration in progress.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/cacti-sweep/internal/docker"
	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/runner"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
	"github.com/shinji-kodama/cacti-sweep/internal/template"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	sweepFlags

	// binary, tmpl, output and configs override the sweep file's scalar
	// fields when non-empty.
	binary  string
	tmpl    string
	output  string
	configs string

	// timeout overrides the per-invocation limit when the flag is set.
	timeout time.Duration

	skipInvalid bool

	// image selects the container backend; pull pulls it first.
	image string
	pull  bool
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run CACTI over every configuration of a sweep",
		Long: `Run CACTI once per configuration of a sweep, strictly sequentially.

For each configuration a CACTI config is rendered from the template into the
config directory and the tool's output is written to
<output>/cacti_<size>_<block>_<assoc>.out. Configurations the validity
predicate rejects are not executed; their result file carries the reasons.

Examples:
  cacti-sweep run --sweep sweep.yaml
  cacti-sweep run --template cache.cfg --cacti ./cacti --size 2048 --block 32,64 --assoc 1,2,4
  cacti-sweep run --sweep sweep.yaml --docker-image cacti:6.5 --pull`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.binary, "cacti", "", "CACTI binary (default: sweep file, $CACTI_BIN, then \"cacti\" on PATH)")
	cmd.Flags().StringVarP(&flags.tmpl, "template", "t", "", "Base CACTI config template")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Result directory (default \""+sweep.DefaultOutputDir+"\")")
	cmd.Flags().StringVar(&flags.configs, "configs", "", "Directory for rendered CACTI configs (default <output>/configs)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", sweep.DefaultTimeout, "Per-invocation time limit, 0 for none")
	cmd.Flags().BoolVar(&flags.skipInvalid, "skip-invalid", false, "Do not write result files for pre-detected invalid configurations")
	cmd.Flags().StringVar(&flags.image, "docker-image", "", "Run CACTI in this container image instead of a local binary")
	cmd.Flags().BoolVar(&flags.pull, "pull", false, "Pull the container image before the sweep")

	return cmd
}

// resolveRunConfig merges the sweep file, the flags and the environment
// into a validated sweep configuration.
func resolveRunConfig(cmd *cobra.Command, flags *runFlags) (*sweep.Config, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, err
	}

	if flags.binary != "" {
		cfg.Binary = flags.binary
	}
	if flags.tmpl != "" {
		cfg.Template = flags.tmpl
	}
	if flags.output != "" {
		cfg.OutputDir = flags.output
	}
	if flags.configs != "" {
		cfg.ConfigDir = flags.configs
	}
	if cmd.Flags().Changed("timeout") {
		cfg.SetTimeout(flags.timeout)
	}
	if flags.skipInvalid {
		cfg.SkipInvalid = true
	}
	if flags.image != "" {
		if cfg.Docker == nil {
			cfg.Docker = &sweep.DockerConfig{}
		}
		cfg.Docker.Image = flags.image
	}
	if flags.pull && cfg.Docker != nil {
		cfg.Docker.Pull = true
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, cmd *cobra.Command, flags *runFlags) error {
	// Step 1: Resolve the sweep.
	cfg, err := resolveRunConfig(cmd, flags)
	if err != nil {
		return err
	}
	configs := cfg.Grid()
	VerboseLog("Sweep resolved: %d configuration(s), output %s", len(configs), cfg.OutputDir)

	// Step 2: Load the template and warn about keys CACTI will see appended.
	tmpl, err := template.Load(cfg.Template)
	if err != nil {
		return err
	}
	for _, key := range tmpl.MissingKeys() {
		Logger().Warn("template does not define a swept parameter; it will be appended",
			zap.String("template", cfg.Template), zap.String("key", key))
	}

	// Step 3: Select the backend.
	backend, cleanup, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	VerboseLog("Using %s backend", backend.Name())

	// Step 4: Run the batch. Progress goes to stderr so stdout carries
	// only the result.
	r := &runner.Runner{
		Template:    tmpl,
		Backend:     backend,
		OutputDir:   cfg.OutputDir,
		ConfigDir:   cfg.ConfigDir,
		Timeout:     cfg.Timeout.Duration,
		SkipInvalid: cfg.SkipInvalid,
		Logger:      Logger(),
	}
	if !IsJSONOutput() {
		done := 0
		r.OnOutcome = func(o model.Outcome) {
			done++
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %-22s %s\n", done, len(configs), o.Config.Stem(), o.Status)
		}
	}

	batch, runErr := r.Run(ctx, configs)
	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted && len(batch.Outcomes) == 0 {
		return runErr
	}

	// Step 5: Report whatever was completed, even after an interruption.
	if err := printRunResult(cmd.OutOrStdout(), batch, backend.Name(), cfg.OutputDir); err != nil {
		return err
	}

	if runErr != nil {
		if interrupted {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("sweep interrupted after %d of %d configuration(s)", len(batch.Outcomes), len(configs)), runErr)
		}
		return runErr
	}
	return nil
}

// newBackend returns the backend selected by cfg and a cleanup function
// that releases it.
func newBackend(ctx context.Context, cfg *sweep.Config) (runner.Backend, func(), error) {
	if !cfg.UsesDocker() {
		b, err := runner.NewLocalBackend(cfg.Binary)
		if err != nil {
			return nil, nil, err
		}
		VerboseLog("CACTI binary: %s", b.Binary)
		return b, func() {}, nil
	}

	cli, err := docker.NewClient()
	if err != nil {
		return nil, nil, err
	}
	b := docker.NewBackend(cli, cfg.Docker.Image, Logger())
	if err := b.Prepare(ctx, cfg.Docker.Pull); err != nil {
		_ = cli.Close()
		return nil, nil, err
	}
	VerboseLog("Connected to Docker daemon, image %s", cfg.Docker.Image)
	return b, func() { _ = cli.Close() }, nil
}

// printRunResult outputs the batch result in text or JSON format.
func printRunResult(w io.Writer, batch *model.Batch, backendName, outputDir string) error {
	if IsJSONOutput() {
		return printJSON(w, newBatchJSON(batch, backendName, outputDir))
	}
	return printRunResultText(w, batch, outputDir)
}

// batchJSON is the JSON output structure for a batch.
type batchJSON struct {
	Batch     string         `json:"batch"`
	StartedAt time.Time      `json:"startedAt"`
	Backend   string         `json:"backend"`
	Output    string         `json:"output"`
	Counts    map[string]int `json:"counts"`
	Outcomes  []outcomeJSON  `json:"outcomes"`
}

type outcomeJSON struct {
	Config        string `json:"config"`
	Size          int    `json:"size"`
	BlockSize     int    `json:"blockSize"`
	Associativity int    `json:"associativity"`
	Status        string `json:"status"`
	Result        string `json:"result,omitempty"`
	ExitCode      int    `json:"exitCode"`
	Cause         string `json:"cause,omitempty"`
	DurationMs    int64  `json:"durationMs"`
}

func newBatchJSON(batch *model.Batch, backendName, outputDir string) batchJSON {
	out := batchJSON{
		Batch:     batch.ID,
		StartedAt: batch.StartedAt,
		Backend:   backendName,
		Output:    outputDir,
		Counts: map[string]int{
			model.StatusOK.String():      batch.Count(model.StatusOK),
			model.StatusInvalid.String(): batch.Count(model.StatusInvalid),
			model.StatusFailed.String():  batch.Count(model.StatusFailed),
		},
		Outcomes: make([]outcomeJSON, 0, len(batch.Outcomes)),
	}
	for _, o := range batch.Outcomes {
		out.Outcomes = append(out.Outcomes, outcomeJSON{
			Config:        o.Config.Stem(),
			Size:          o.Config.Size,
			BlockSize:     o.Config.BlockSize,
			Associativity: o.Config.Associativity,
			Status:        o.Status.String(),
			Result:        o.ResultPath,
			ExitCode:      o.ExitCode,
			Cause:         o.Cause,
			DurationMs:    o.Duration.Milliseconds(),
		})
	}
	return out
}

// printRunResultText outputs the batch as a table followed by totals:
//
//	CONFIG                 STATUS   EXIT  CAUSE
//	cacti_2048_32_1        ok       0     -
//	cacti_2048_32_4        failed   1     no valid data array organization for this geometry
func printRunResultText(w io.Writer, batch *model.Batch, outputDir string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s\n\n", batch.ID)
	fmt.Fprintf(&b, "%-22s %-8s %-5s %s\n", "CONFIG", "STATUS", "EXIT", "CAUSE")
	for _, o := range batch.Outcomes {
		fmt.Fprintf(&b, "%-22s %-8s %-5s %s\n",
			o.Config.Stem(), o.Status, FormatExitCode(o.ExitCode), FormatCause(o.Cause))
	}
	fmt.Fprintf(&b, "\n%d configuration(s): %d ok, %d invalid, %d failed\n",
		len(batch.Outcomes),
		batch.Count(model.StatusOK),
		batch.Count(model.StatusInvalid),
		batch.Count(model.StatusFailed))
	fmt.Fprintf(&b, "Results in %s\n", outputDir)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatExitCode renders an exit status for the result table. Negative
// values mean the tool never reported one and render as "-".
func FormatExitCode(code int) string {
	if code < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}

// FormatCause renders an outcome cause, "-" when empty. Multi-line causes
// are folded onto one line.
func FormatCause(cause string) string {
	cause = strings.Join(strings.Fields(cause), " ")
	if cause == "" {
		return "-"
	}
	return cause
}
