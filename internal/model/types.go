// Package model defines the domain types for the cacti-sweep CLI.
//
// All entities in this package are transient: a sweep is described by a
// file, executed once, and leaves only flat files behind (generated CACTI
// configs and one text report per configuration). Nothing here is
// persisted between runs.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig is one point of a parameter sweep: a cache geometry that
// is handed to CACTI through a generated config file.
type CacheConfig struct {
	// Size is the total cache capacity in bytes.
	Size int `json:"size" yaml:"size"`

	// BlockSize is the number of bytes per cache line.
	BlockSize int `json:"blockSize" yaml:"block_size"`

	// Associativity is the number of ways per set. Zero means
	// fully associative, which is how CACTI spells it as well.
	Associativity int `json:"associativity" yaml:"associativity"`
}

// BlockCount returns Size / BlockSize using integer division.
// It returns 0 for a non-positive block size instead of dividing by zero.
func (c CacheConfig) BlockCount() int {
	if c.BlockSize <= 0 {
		return 0
	}
	return c.Size / c.BlockSize
}

// SetCount returns the number of sets: 1 for a fully associative cache,
// BlockCount / Associativity otherwise. A negative associativity yields 0.
func (c CacheConfig) SetCount() int {
	if c.Associativity == 0 {
		return 1
	}
	if c.Associativity < 0 {
		return 0
	}
	return c.BlockCount() / c.Associativity
}

// FullyAssociative reports whether the configuration has a single set.
func (c CacheConfig) FullyAssociative() bool {
	return c.Associativity == 0
}

// Stem is the file name stem shared by the generated config file and the
// result file for this configuration, e.g. "cacti_2048_32_4".
//
// The analysis side parses parameters back out of this name, so the
// layout (prefix, underscore separators, field order) must not change.
func (c CacheConfig) Stem() string {
	return fmt.Sprintf("cacti_%d_%d_%d", c.Size, c.BlockSize, c.Associativity)
}

// ConfigFileName returns the name of the generated CACTI config file.
func (c CacheConfig) ConfigFileName() string {
	return c.Stem() + ".cfg"
}

// ResultFileName returns the name of the captured CACTI report.
func (c CacheConfig) ResultFileName() string {
	return c.Stem() + ".out"
}

// String returns a compact human-readable form such as
// "size=2048 block=32 assoc=4" (assoc=full for fully associative).
func (c CacheConfig) String() string {
	assoc := fmt.Sprintf("%d", c.Associativity)
	if c.FullyAssociative() {
		assoc = "full"
	}
	return fmt.Sprintf("size=%d block=%d assoc=%s", c.Size, c.BlockSize, assoc)
}

// Rule identifies one clause of the configuration validity predicate.
type Rule string

const (
	RuleNonPositiveSize       Rule = "non-positive-size"
	RuleNonPositiveBlock      Rule = "non-positive-block"
	RuleNegativeAssociativity Rule = "negative-associativity"
	RuleBlockLargerThanCache  Rule = "block-larger-than-cache"
	RuleUnevenSets            Rule = "uneven-sets"
	RuleTooFewSets            Rule = "too-few-sets"
	RuleFullyAssocLargeBlock  Rule = "fully-associative-large-block"
	RuleLargeBlockHighAssoc   Rule = "large-block-high-associativity"
)

// String returns the string representation of Rule.
func (r Rule) String() string {
	return string(r)
}

// Violation is a single failed rule together with the reason that ends
// up in the pre-detected invalid stamp file.
type Violation struct {
	Rule   Rule   `json:"rule"`
	Reason string `json:"reason"`
}

// Verdict is the result of evaluating the validity predicate for one
// configuration. A verdict without violations means the configuration
// is worth handing to CACTI.
type Verdict struct {
	Config     CacheConfig `json:"config"`
	Violations []Violation `json:"violations,omitempty"`
}

// Valid reports whether no rule was violated.
func (v Verdict) Valid() bool {
	return len(v.Violations) == 0
}

// Has reports whether the given rule was violated.
func (v Verdict) Has(rule Rule) bool {
	for _, violation := range v.Violations {
		if violation.Rule == rule {
			return true
		}
	}
	return false
}

// Reasons returns the human-readable reasons in evaluation order.
func (v Verdict) Reasons() []string {
	reasons := make([]string, 0, len(v.Violations))
	for _, violation := range v.Violations {
		reasons = append(reasons, violation.Reason)
	}
	return reasons
}

// RunStatus is the per-configuration outcome of a batch run.
type RunStatus string

const (
	// StatusOK means CACTI ran and exited with status zero.
	StatusOK RunStatus = "ok"

	// StatusInvalid means the validity predicate rejected the
	// configuration; CACTI was never invoked for it.
	StatusInvalid RunStatus = "invalid"

	// StatusFailed means CACTI was invoked but failed (non-zero exit,
	// timeout, or the binary could not be started).
	StatusFailed RunStatus = "failed"
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsValid checks whether the RunStatus value is one of the
// predefined states.
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusInvalid, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseRunStatus converts a string to a RunStatus.
// Returns an error if the string does not match any valid status.
func ParseRunStatus(s string) (RunStatus, error) {
	status := RunStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid run status: %q (valid: ok, invalid, failed)", s)
	}
	return status, nil
}

// Outcome records what happened to one configuration of a batch.
type Outcome struct {
	Config CacheConfig `json:"config"`
	Status RunStatus   `json:"status"`

	// ResultPath is the absolute path of the written result file.
	// Empty only when invalid configurations are skipped entirely.
	ResultPath string `json:"resultPath,omitempty"`

	// ExitCode is the tool's exit status; -1 when it never exited
	// normally (not started, killed by timeout).
	ExitCode int `json:"exitCode"`

	// Cause is the suspected failure cause for StatusFailed, or the
	// joined violation reasons for StatusInvalid.
	Cause string `json:"cause,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Batch is the aggregate result of one sweep execution.
type Batch struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Count returns how many outcomes carry the given status.
func (b *Batch) Count(status RunStatus) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// ExitCode defines the CLI exit codes. Scripts driving long sweeps use
// these to tell a configuration problem from a tool or I/O problem.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the sweep file or the CACTI template
	// could not be read or is malformed.
	ExitConfigError ExitCode = 2

	// ExitToolNotFound indicates the CACTI binary could not be located.
	ExitToolNotFound ExitCode = 3

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// while the container backend was requested.
	ExitDockerNotRunning ExitCode = 4

	// ExitIOError indicates result, export or summary files could not
	// be read or written.
	ExitIOError ExitCode = 5

	// ExitInvalidConfig is returned by "check" when the configuration
	// is rejected by the validity predicate.
	ExitInvalidConfig ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
