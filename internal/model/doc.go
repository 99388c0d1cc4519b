// Package model defines the domain types and value objects for the
// cacti-sweep CLI.
//
// This package contains pure data structures with no external dependencies.
// CacheConfig, Verdict, Outcome and Batch are transient values; the only
// artifacts a sweep leaves behind are the generated config files and the
// per-configuration result files.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
