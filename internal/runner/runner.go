// Package runner executes a sweep: one CACTI invocation per accepted
// configuration, strictly one at a time, each captured into its own
// result file.
//
// The loop never stops on a tool failure. A configuration rejected by the
// validity predicate gets a stamp file and is not executed; a
// configuration whose invocation fails keeps the tool's output with a
// diagnostic block appended. Only problems that would make every
// following configuration fail too (unwritable output directory, broken
// template) abort the batch.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/sweep"
	"github.com/shinji-kodama/cacti-sweep/internal/template"
)

// Runner holds everything needed to execute a batch. The zero value is
// not usable; Template, Backend and OutputDir are required.
type Runner struct {
	Template *template.Template
	Backend  Backend

	// OutputDir receives one <stem>.out per configuration.
	OutputDir string

	// ConfigDir receives the rendered <stem>.cfg files. Defaults to
	// OutputDir/configs.
	ConfigDir string

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration

	// SkipInvalid suppresses stamp files for rejected configurations.
	SkipInvalid bool

	Logger *zap.Logger

	// OnOutcome, if set, is called after each configuration completes.
	OnOutcome func(model.Outcome)

	now    func() time.Time
	create func(path string) (io.WriteCloser, error)
}

func (r *Runner) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) createResult(path string) (io.WriteCloser, error) {
	if r.create != nil {
		return r.create(path)
	}
	return os.Create(path)
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Run executes configs in order and returns the batch record.
//
// If ctx is cancelled the loop stops before the next configuration and
// the partial batch is returned together with the context error. Any
// other returned error is a CLIError that aborted the batch; the batch
// then holds the outcomes recorded so far.
func (r *Runner) Run(ctx context.Context, configs []model.CacheConfig) (*model.Batch, error) {
	batch := &model.Batch{
		ID:        xid.New().String(),
		StartedAt: r.clock().UTC(),
		Outcomes:  make([]model.Outcome, 0, len(configs)),
	}

	if err := r.prepare(); err != nil {
		return batch, err
	}

	log := r.log().With(zap.String("batch", batch.ID), zap.String("backend", r.Backend.Name()))
	log.Info("starting sweep", zap.Int("configurations", len(configs)), zap.String("output", r.OutputDir))

	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			log.Warn("sweep interrupted", zap.Int("completed", i), zap.Int("remaining", len(configs)-i))
			return batch, err
		}

		outcome, err := r.RunOne(ctx, batch.ID, cfg)
		if err != nil {
			return batch, err
		}
		batch.Outcomes = append(batch.Outcomes, outcome)

		log.Debug("configuration done",
			zap.String("config", cfg.Stem()),
			zap.String("status", outcome.Status.String()),
			zap.Duration("duration", outcome.Duration),
			zap.Int("index", i+1),
			zap.Int("total", len(configs)))

		if r.OnOutcome != nil {
			r.OnOutcome(outcome)
		}
	}

	log.Info("sweep finished",
		zap.Int("ok", batch.Count(model.StatusOK)),
		zap.Int("invalid", batch.Count(model.StatusInvalid)),
		zap.Int("failed", batch.Count(model.StatusFailed)))

	return batch, nil
}

func (r *Runner) prepare() error {
	if r.Template == nil || r.Backend == nil || r.OutputDir == "" {
		return model.NewCLIError(model.ExitGeneralError, "runner is missing a template, backend or output directory")
	}
	if r.ConfigDir == "" {
		r.ConfigDir = filepath.Join(r.OutputDir, "configs")
	}
	for _, dir := range []string{r.OutputDir, r.ConfigDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.WrapCLIError(model.ExitIOError,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
	}
	return nil
}

// RunOne processes a single configuration: predicate, config rendering,
// invocation and diagnostics. A returned error is fatal for the batch;
// tool failures are reported through the outcome instead.
func (r *Runner) RunOne(ctx context.Context, batchID string, cfg model.CacheConfig) (model.Outcome, error) {
	start := r.clock()
	outcome := model.Outcome{Config: cfg, ExitCode: -1}
	log := r.log().With(zap.String("config", cfg.Stem()))

	resultPath, err := filepath.Abs(filepath.Join(r.OutputDir, cfg.ResultFileName()))
	if err != nil {
		return outcome, model.WrapCLIError(model.ExitIOError, "failed to resolve result path", err)
	}

	verdict := sweep.Check(cfg)
	if !verdict.Valid() {
		outcome.Status = model.StatusInvalid
		outcome.Cause = strings.Join(verdict.Reasons(), "; ")
		log.Info("skipping invalid configuration", zap.Strings("reasons", verdict.Reasons()))

		if !r.SkipInvalid {
			if err := writeFile(resultPath, func(w io.Writer) error {
				return WriteInvalidStamp(w, verdict)
			}); err != nil {
				return outcome, err
			}
			outcome.ResultPath = resultPath
		}
		outcome.Duration = r.clock().Sub(start)
		return outcome, nil
	}

	cfgPath, err := r.Template.Write(r.ConfigDir, cfg)
	if err != nil {
		return outcome, model.WrapCLIError(model.ExitIOError, "failed to write CACTI config", err)
	}

	f, err := r.createResult(resultPath)
	if err != nil {
		return outcome, model.WrapCLIError(model.ExitIOError,
			fmt.Sprintf("failed to create result file %s", resultPath), err)
	}
	outcome.ResultPath = resultPath

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// The captured copy is only scanned for the failure marker; the file
	// is the authoritative record.
	var captured bytes.Buffer
	log.Debug("invoking CACTI", zap.String("cfg", cfgPath))
	exitCode, runErr := r.Backend.Run(runCtx, Invocation{
		BatchID:    batchID,
		Config:     cfg,
		ConfigPath: cfgPath,
	}, io.MultiWriter(f, &captured))
	outcome.ExitCode = exitCode

	timedOut := r.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	switch {
	case ctx.Err() != nil && !timedOut:
		// An interrupted invocation is not a tool failure: the partial
		// output is kept but no diagnostic block is appended, and the
		// configuration is left out of the batch.
		outcome.Status = model.StatusFailed
		outcome.Cause = CauseInterrupted
		outcome.Duration = r.clock().Sub(start)
		log.Warn("CACTI invocation interrupted", zap.Int("exit", exitCode))
		if err := closeResult(f, resultPath); err != nil {
			return outcome, err
		}
		return outcome, ctx.Err()

	case runErr == nil && exitCode == 0:
		outcome.Status = model.StatusOK

	default:
		outcome.Status = model.StatusFailed
		outcome.Cause = Diagnose(captured.Bytes(), runErr, timedOut)
		if timedOut {
			outcome.Cause = fmt.Sprintf("%s (limit %s)", outcome.Cause, r.Timeout)
		}
		log.Warn("CACTI invocation failed",
			zap.Int("exit", exitCode),
			zap.String("cause", outcome.Cause),
			zap.Error(runErr))

		if err := WriteFailureBlock(f, cfg, exitCode, outcome.Cause); err != nil {
			_ = f.Close()
			return outcome, model.WrapCLIError(model.ExitIOError,
				fmt.Sprintf("failed to append diagnostics to %s", resultPath), err)
		}
	}

	if err := closeResult(f, resultPath); err != nil {
		return outcome, err
	}
	outcome.Duration = r.clock().Sub(start)
	return outcome, nil
}

func closeResult(f io.Closer, path string) error {
	if err := f.Close(); err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to close %s", path), err)
	}
	return nil
}

// writeFile creates path and fills it through fn, wrapping failures as
// batch-fatal I/O errors.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to create %s", path), err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to write %s", path), err)
	}
	if err := f.Close(); err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to close %s", path), err)
	}
	return nil
}
