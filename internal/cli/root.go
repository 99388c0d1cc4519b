// Package cli implements the cobra-based CLI commands for cacti-sweep.
//
// Each subcommand (check, plan, run, export, summarize, clean) is defined in
// its own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags,
// logging setup and error reporting.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose lowers the log level to Debug.
	verbose bool

	// envFile is the dotenv file loaded before any command runs. A missing
	// default file is not an error; an explicitly given one must exist.
	envFile string

	// logger is built in PersistentPreRunE and synced in PersistentPostRun.
	logger *zap.Logger
)

// defaultEnvFile is the dotenv file looked up in the working directory.
const defaultEnvFile = ".env"

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action; it only provides
// help text and global flags. Actual functionality is provided by
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cacti-sweep",
		Short: "Batch parameter sweeps for the CACTI cache simulator",
		Long: `cacti-sweep runs the CACTI cache model over a grid of cache sizes,
block sizes and associativities.

Configurations CACTI is known to reject are detected up front and stamped
instead of executed. Every accepted configuration gets its own CACTI config
and result file; a failing invocation never stops the sweep. The result
directory can then be summarized into a single CSV or SQLite table.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// PersistentPreRunE runs before every subcommand: environment
		// defaults first, so CACTI_BIN and CACTI_IMAGE from .env are visible
		// to sweep resolution, then the logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}

			l, err := newLogger(verbose, jsonOutput)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			if loaded {
				VerboseLog("Loaded environment from %s", envFile)
			}
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "Dotenv file with CACTI_BIN / CACTI_IMAGE defaults")

	// Register subcommands. Each subcommand is defined in its own file
	// (check.go, run.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewPlanCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewSummarizeCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// newLogger builds the process logger on stderr. Text mode uses the
// console encoder; --json switches logs to JSON lines so both streams stay
// machine readable. Only warnings and errors are shown unless verbose.
func newLogger(verbose, jsonLogs bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if !jsonLogs {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.DisableCaller = !verbose
	config.Sampling = nil
	return config.Build()
}

// loadEnvFile loads dotenv defaults without overriding variables already
// set in the environment.
func loadEnvFile(path string, explicit bool) (bool, error) {
	err := godotenv.Load(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return false, nil
	}
	return false, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to load %s", path), err)
}

// Logger returns the process logger, or a no-op logger before
// PersistentPreRunE has run.
func Logger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// SIGINT and SIGTERM cancel the command context; a running sweep finishes
// its current configuration and stops. Errors carrying a CLIError anywhere
// in their chain exit with its code; other errors exit with code 1.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error, exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog writes a debug-level trace line through the process logger.
// It is only visible with --verbose.
func VerboseLog(format string, args ...interface{}) {
	Logger().Sugar().Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
