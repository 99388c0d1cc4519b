package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

func cfg(size, block, assoc int) model.CacheConfig {
	return model.CacheConfig{Size: size, BlockSize: block, Associativity: assoc}
}

// TestCheck covers every rule of the predicate with the configurations
// that motivated it.
func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		config    model.CacheConfig
		wantRules []model.Rule
	}{
		{
			name:   "direct mapped 32B blocks accepted",
			config: cfg(2048, 32, 1),
		},
		{
			name:   "fully associative small block accepted",
			config: cfg(2048, 32, 0),
		},
		{
			name:   "fully associative 64B block is the upper bound",
			config: cfg(2048, 64, 0),
		},
		{
			name:   "four way 64B accepted",
			config: cfg(2048, 64, 4),
		},
		{
			name:      "fully associative large block rejected",
			config:    cfg(2048, 128, 0),
			wantRules: []model.Rule{model.RuleFullyAssocLargeBlock},
		},
		{
			name:      "128B block with 8 ways rejected",
			config:    cfg(2048, 128, 8),
			wantRules: []model.Rule{model.RuleTooFewSets, model.RuleLargeBlockHighAssoc},
		},
		{
			name:      "128B block with 8 ways rejected even when sets are plentiful",
			config:    cfg(65536, 128, 8),
			wantRules: []model.Rule{model.RuleLargeBlockHighAssoc},
		},
		{
			name:   "128B block with 4 ways accepted",
			config: cfg(2048, 128, 4),
		},
		{
			name:      "uneven sets",
			config:    cfg(2048, 32, 3),
			wantRules: []model.Rule{model.RuleUnevenSets},
		},
		{
			name:      "too few sets",
			config:    cfg(2048, 64, 16),
			wantRules: []model.Rule{model.RuleTooFewSets},
		},
		{
			name:      "block larger than cache",
			config:    cfg(64, 128, 1),
			wantRules: []model.Rule{model.RuleBlockLargerThanCache, model.RuleTooFewSets},
		},
		{
			name:      "block larger than cache fully associative",
			config:    cfg(32, 64, 0),
			wantRules: []model.Rule{model.RuleBlockLargerThanCache},
		},
		{
			name:      "zero block size",
			config:    cfg(2048, 0, 1),
			wantRules: []model.Rule{model.RuleNonPositiveBlock},
		},
		{
			name:      "zero size and negative associativity",
			config:    cfg(0, 32, -2),
			wantRules: []model.Rule{model.RuleBlockLargerThanCache, model.RuleNonPositiveSize, model.RuleNegativeAssociativity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Check(tt.config)
			assert.Equal(t, tt.config, verdict.Config)

			got := make([]model.Rule, 0, len(verdict.Violations))
			for _, v := range verdict.Violations {
				got = append(got, v.Rule)
				assert.NotEmpty(t, v.Reason)
			}
			if len(tt.wantRules) == 0 {
				assert.True(t, verdict.Valid(), "unexpected violations: %v", verdict.Reasons())
				return
			}
			assert.Equal(t, tt.wantRules, got)
		})
	}
}

// TestCheck_BlockLargerThanCacheAlwaysRejected sweeps a range of
// geometries with B > S and expects the dedicated reason every time.
func TestCheck_BlockLargerThanCacheAlwaysRejected(t *testing.T) {
	for _, size := range []int{16, 32, 64, 100, 256} {
		for _, block := range []int{size + 1, size * 2, size * 4} {
			for _, assoc := range []int{0, 1, 2, 4, 8} {
				verdict := Check(cfg(size, block, assoc))
				require.False(t, verdict.Valid(), "size=%d block=%d assoc=%d", size, block, assoc)
				require.True(t, verdict.Has(model.RuleBlockLargerThanCache))
				assert.Contains(t, verdict.Violations[0].Reason, "block larger than cache")
			}
		}
	}

	// Degenerate sizes and associativities stop the division-based rules
	// but not this one.
	for _, c := range []model.CacheConfig{cfg(64, 128, -1), cfg(0, 32, 1), cfg(-8, 4, 0)} {
		verdict := Check(c)
		assert.True(t, verdict.Has(model.RuleBlockLargerThanCache), "%s", c)
		assert.Contains(t, verdict.Violations[0].Reason, "block larger than cache")
	}
}

func TestCheck_ReasonsMentionParameters(t *testing.T) {
	verdict := Check(cfg(2048, 32, 3))
	require.Len(t, verdict.Violations, 1)
	assert.Contains(t, verdict.Violations[0].Reason, "64")
	assert.Contains(t, verdict.Violations[0].Reason, "3")
}
