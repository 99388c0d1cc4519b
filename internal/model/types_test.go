package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCacheConfig_Derived checks block and set count arithmetic,
// including the fully associative and degenerate cases.
func TestCacheConfig_Derived(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CacheConfig
		wantBlocks int
		wantSets   int
	}{
		{"direct mapped", CacheConfig{2048, 32, 1}, 64, 64},
		{"four way", CacheConfig{2048, 32, 4}, 64, 16},
		{"fully associative", CacheConfig{2048, 32, 0}, 64, 1},
		{"integer division", CacheConfig{1000, 64, 1}, 15, 15},
		{"zero block size", CacheConfig{2048, 0, 2}, 0, 0},
		{"negative associativity", CacheConfig{2048, 32, -1}, 64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantBlocks, tt.cfg.BlockCount())
			assert.Equal(t, tt.wantSets, tt.cfg.SetCount())
		})
	}
}

// TestCacheConfig_FileNames verifies the naming scheme shared by the
// runner (writes) and the summarizer (parses parameters back).
func TestCacheConfig_FileNames(t *testing.T) {
	cfg := CacheConfig{Size: 2048, BlockSize: 64, Associativity: 0}
	assert.Equal(t, "cacti_2048_64_0", cfg.Stem())
	assert.Equal(t, "cacti_2048_64_0.cfg", cfg.ConfigFileName())
	assert.Equal(t, "cacti_2048_64_0.out", cfg.ResultFileName())
	assert.Equal(t, "size=2048 block=64 assoc=full", cfg.String())
	assert.Equal(t, "size=2048 block=64 assoc=8", CacheConfig{2048, 64, 8}.String())
}

func TestVerdict(t *testing.T) {
	v := Verdict{Config: CacheConfig{2048, 128, 8}}
	assert.True(t, v.Valid())
	assert.Empty(t, v.Reasons())

	v.Violations = append(v.Violations,
		Violation{Rule: RuleTooFewSets, Reason: "too few sets"},
		Violation{Rule: RuleLargeBlockHighAssoc, Reason: "block 128 with 8 ways"},
	)
	assert.False(t, v.Valid())
	assert.True(t, v.Has(RuleLargeBlockHighAssoc))
	assert.False(t, v.Has(RuleUnevenSets))
	assert.Equal(t, []string{"too few sets", "block 128 with 8 ways"}, v.Reasons())
}

// TestParseRunStatus verifies string-to-status conversion,
// including case normalization and error cases.
func TestParseRunStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected RunStatus
		hasError bool
	}{
		{"ok", StatusOK, false},
		{"invalid", StatusInvalid, false},
		{"failed", StatusFailed, false},
		{"FAILED", StatusFailed, false}, // case insensitive
		{"running", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRunStatus(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestBatch_Count(t *testing.T) {
	b := &Batch{Outcomes: []Outcome{
		{Status: StatusOK},
		{Status: StatusInvalid},
		{Status: StatusOK},
		{Status: StatusFailed},
	}}
	assert.Equal(t, 2, b.Count(StatusOK))
	assert.Equal(t, 1, b.Count(StatusInvalid))
	assert.Equal(t, 1, b.Count(StatusFailed))
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitToolNotFound, "cacti binary not found")
		assert.Equal(t, ExitToolNotFound, err.Code)
		assert.Equal(t, "cacti binary not found", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitIOError, "cannot write result file", inner)
		assert.Equal(t, ExitIOError, err.Code)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitIOError, "cannot write result file", inner)
		assert.True(t, errors.Is(err, inner))
	})
}
