package sweep

import (
	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Grid expands the three axes into configurations, sizes outermost and
// associativities innermost, keeping the order in which values appear.
// Repeated triples are emitted once.
func Grid(sizes, blocks, assocs []int) []model.CacheConfig {
	seen := make(map[model.CacheConfig]struct{}, len(sizes)*len(blocks)*len(assocs))
	configs := make([]model.CacheConfig, 0, len(sizes)*len(blocks)*len(assocs))

	for _, s := range sizes {
		for _, b := range blocks {
			for _, a := range assocs {
				cfg := model.CacheConfig{Size: s, BlockSize: b, Associativity: a}
				if _, dup := seen[cfg]; dup {
					continue
				}
				seen[cfg] = struct{}{}
				configs = append(configs, cfg)
			}
		}
	}
	return configs
}

// Grid returns the configuration grid described by the sweep file.
func (c *Config) Grid() []model.CacheConfig {
	return Grid(c.Sizes, c.Blocks, c.Associativities)
}

// Plan evaluates the validity predicate over every configuration of the grid.
func Plan(configs []model.CacheConfig) []model.Verdict {
	verdicts := make([]model.Verdict, 0, len(configs))
	for _, cfg := range configs {
		verdicts = append(verdicts, Check(cfg))
	}
	return verdicts
}
