// validity.go implements the configuration pre-filter that runs before
// every CACTI invocation.
//
// The rules encode empirical limits of the tool, not cache theory: CACTI
// either refuses these geometries outright or searches its organization
// space without converging.

package sweep

import (
	"fmt"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

const (
	// MinSets is the smallest set count CACTI can lay out as an array
	// for a set-associative cache.
	MinSets = 4

	// MaxFullyAssocBlock is the largest block size (bytes) for which a
	// fully associative array still converges.
	MaxFullyAssocBlock = 64

	// LargeBlock and LargeBlockMaxAssoc bound the block/associativity
	// combination: LargeBlock-byte lines with LargeBlockMaxAssoc or more
	// ways fall outside the realizable array space.
	LargeBlock         = 128
	LargeBlockMaxAssoc = 8
)

// Check evaluates the validity predicate for cfg and returns every
// violated rule, in evaluation order:
//
//  1. block larger than cache
//  2. block count not divisible by associativity
//  3. fewer than MinSets sets (set-associative only)
//  4. fully associative with a block above MaxFullyAssocBlock
//  5. LargeBlock-byte blocks with LargeBlockMaxAssoc or more ways
//
// Rule 1 needs no division and is always evaluated. Non-positive sizes
// and negative associativity are reported after it and stop evaluation,
// so no later rule ever divides by zero.
func Check(cfg model.CacheConfig) model.Verdict {
	verdict := model.Verdict{Config: cfg}
	reject := func(rule model.Rule, format string, args ...any) {
		verdict.Violations = append(verdict.Violations, model.Violation{
			Rule:   rule,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	size, block, assoc := cfg.Size, cfg.BlockSize, cfg.Associativity

	if block > size {
		reject(model.RuleBlockLargerThanCache,
			"block larger than cache (block %d B > size %d B)", block, size)
	}

	if size <= 0 {
		reject(model.RuleNonPositiveSize, "cache size must be positive (got %d)", size)
	}
	if block <= 0 {
		reject(model.RuleNonPositiveBlock, "block size must be positive (got %d)", block)
	}
	if assoc < 0 {
		reject(model.RuleNegativeAssociativity, "associativity must be 0 (fully associative) or positive (got %d)", assoc)
	}
	if size <= 0 || block <= 0 || assoc < 0 {
		return verdict
	}

	blockCount := cfg.BlockCount()
	if assoc > 0 && blockCount%assoc != 0 {
		reject(model.RuleUnevenSets,
			"block count %d is not divisible by associativity %d", blockCount, assoc)
	}

	setCount := cfg.SetCount()
	if assoc != 0 && setCount < MinSets {
		reject(model.RuleTooFewSets,
			"too few sets for a realizable array (%d sets < %d)", setCount, MinSets)
	}

	if assoc == 0 && block > MaxFullyAssocBlock {
		reject(model.RuleFullyAssocLargeBlock,
			"fully associative cache with block %d B > %d B does not converge", block, MaxFullyAssocBlock)
	}

	if block == LargeBlock && assoc >= LargeBlockMaxAssoc {
		reject(model.RuleLargeBlockHighAssoc,
			"block %d B with associativity %d >= %d exceeds the realizable array space", block, assoc, LargeBlockMaxAssoc)
	}

	return verdict
}
