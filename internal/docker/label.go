package docker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/runner"
)

// Label keys set on every container the backend creates. They let
// "cacti-sweep clean" find containers left behind by an interrupted
// sweep, and make "docker ps" output self-explanatory.
const (
	LabelPrefix = "cacti-sweep."

	// LabelManagedBy marks containers created by this tool; its value
	// is always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelBatch holds the batch ID of the sweep.
	LabelBatch = LabelPrefix + "batch"

	// LabelConfig holds the configuration stem, e.g. "cacti_2048_32_4".
	LabelConfig = LabelPrefix + "config"

	LabelSize          = LabelPrefix + "size"
	LabelBlockSize     = LabelPrefix + "block-size"
	LabelAssociativity = LabelPrefix + "associativity"
)

// ManagedByValue is the constant value of LabelManagedBy.
const ManagedByValue = "cacti-sweep"

// BuildLabels returns the label set for the container of one invocation.
func BuildLabels(inv runner.Invocation) map[string]string {
	return map[string]string{
		LabelManagedBy:     ManagedByValue,
		LabelBatch:         inv.BatchID,
		LabelConfig:        inv.Config.Stem(),
		LabelSize:          strconv.Itoa(inv.Config.Size),
		LabelBlockSize:     strconv.Itoa(inv.Config.BlockSize),
		LabelAssociativity: strconv.Itoa(inv.Config.Associativity),
	}
}

// ParseLabels recovers the batch ID and configuration from container
// labels. All keys set by BuildLabels are required; the error lists every
// missing one.
func ParseLabels(labels map[string]string) (string, model.CacheConfig, error) {
	required := []string{LabelManagedBy, LabelBatch, LabelSize, LabelBlockSize, LabelAssociativity}

	var missing []string
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", model.CacheConfig{}, fmt.Errorf("missing required labels: %s", strings.Join(missing, ", "))
	}
	if labels[LabelManagedBy] != ManagedByValue {
		return "", model.CacheConfig{}, fmt.Errorf("container is not managed by %s (managed-by=%q)",
			ManagedByValue, labels[LabelManagedBy])
	}

	var cfg model.CacheConfig
	fields := []struct {
		key string
		dst *int
	}{
		{LabelSize, &cfg.Size},
		{LabelBlockSize, &cfg.BlockSize},
		{LabelAssociativity, &cfg.Associativity},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(labels[f.key])
		if err != nil {
			return "", model.CacheConfig{}, fmt.Errorf("invalid %s label %q: %w", f.key, labels[f.key], err)
		}
		*f.dst = n
	}

	return labels[LabelBatch], cfg, nil
}

// ContainerName returns a daemon-unique, readable container name for an
// invocation: "cacti-<batch>-<stem>".
func ContainerName(inv runner.Invocation) string {
	return fmt.Sprintf("cacti-%s-%s", inv.BatchID, inv.Config.Stem())
}
