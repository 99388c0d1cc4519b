// Package cli: format_test.go contains unit tests for the pure formatting
// helpers used by the command output.
//
// These tests verify data transformation logic without requiring a Docker
// daemon or a CACTI binary.
package cli

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatExitCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want string
	}{
		{name: "success", code: 0, want: "0"},
		{name: "tool failure", code: 1, want: "1"},
		{name: "never started", code: -1, want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatExitCode(tt.code))
		})
	}
}

func TestFormatCause(t *testing.T) {
	assert.Equal(t, "-", FormatCause(""))
	assert.Equal(t, "-", FormatCause("  \n"))
	assert.Equal(t, "exec failed: permission denied", FormatCause("exec failed:\n  permission denied\n"))
}

func TestFormatReasons(t *testing.T) {
	assert.Equal(t, "-", FormatReasons(nil))
	assert.Equal(t, "a; b", FormatReasons([]string{"a", "b"}))
}

func TestFormatStat(t *testing.T) {
	assert.Equal(t, "-", FormatStat(math.NaN()))
	assert.Equal(t, "0.125", FormatStat(0.125))
	assert.Equal(t, "1.23457e+06", FormatStat(1234567))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", ShortID("0123456789abcdef0123"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		output  string
		want    string
		wantErr bool
	}{
		{name: "default csv", output: "summary.csv", want: formatCSV},
		{name: "inferred sqlite", output: "summary.sqlite3", want: formatSQLite},
		{name: "inferred db", output: "out/summary.DB", want: formatSQLite},
		{name: "stdout is csv", output: "-", want: formatCSV},
		{name: "explicit wins", format: "csv", output: "summary.sqlite", want: formatCSV},
		{name: "explicit sqlite", format: "SQLite", output: "summary", want: formatSQLite},
		{name: "sqlite to stdout", format: "sqlite", output: "-", wantErr: true},
		{name: "unknown", format: "parquet", output: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputFormat(tt.format, tt.output)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
