package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/runner"
)

func testInvocation() runner.Invocation {
	return runner.Invocation{
		BatchID:    "cs1m4kq0fh3g0b6lu8q0",
		Config:     model.CacheConfig{Size: 2048, BlockSize: 32, Associativity: 4},
		ConfigPath: "/home/user/sweep/results/configs/cacti_2048_32_4.cfg",
	}
}

// TestBuildLabels verifies every label key BuildLabels writes.
func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(testInvocation())

	assert.Equal(t, map[string]string{
		"cacti-sweep.managed-by":    "cacti-sweep",
		"cacti-sweep.batch":         "cs1m4kq0fh3g0b6lu8q0",
		"cacti-sweep.config":        "cacti_2048_32_4",
		"cacti-sweep.size":          "2048",
		"cacti-sweep.block-size":    "32",
		"cacti-sweep.associativity": "4",
	}, labels)
}

// TestParseLabels_RoundTrip verifies ParseLabels is the inverse of BuildLabels.
func TestParseLabels_RoundTrip(t *testing.T) {
	inv := testInvocation()
	inv.Config.Associativity = 0

	batch, cfg, err := ParseLabels(BuildLabels(inv))
	require.NoError(t, err)
	assert.Equal(t, inv.BatchID, batch)
	assert.Equal(t, inv.Config, cfg)
}

func TestParseLabels_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{
			name:    "missing keys are all listed",
			mutate:  func(l map[string]string) { delete(l, LabelBatch); delete(l, LabelSize) },
			wantErr: "cacti-sweep.batch, cacti-sweep.size",
		},
		{
			name:    "foreign managed-by",
			mutate:  func(l map[string]string) { l[LabelManagedBy] = "someone-else" },
			wantErr: "not managed by",
		},
		{
			name:    "non-numeric geometry",
			mutate:  func(l map[string]string) { l[LabelBlockSize] = "big" },
			wantErr: "invalid cacti-sweep.block-size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := BuildLabels(testInvocation())
			tt.mutate(labels)
			_, _, err := ParseLabels(labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "cacti-cs1m4kq0fh3g0b6lu8q0-cacti_2048_32_4", ContainerName(testInvocation()))
}
