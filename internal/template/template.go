// Package template renders per-configuration CACTI input files from a
// base config template.
//
// CACTI reads a line-oriented config where each parameter is a line of
// the form "-<name> <value>", e.g.:
//
//	-size (bytes) 2048
//	-block size (bytes) 64
//	-associativity 2
//
// Only those three lines vary across a sweep. Everything else in the
// template (technology node, ports, output options, comments) is copied
// through byte for byte, so the base template stays the single source of
// truth for the rest of the model.
package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Parameter keys as they appear in a CACTI config file. The value is the
// remainder of the line after the key.
const (
	KeySize          = "-size (bytes)"
	KeyBlockSize     = "-block size (bytes)"
	KeyAssociativity = "-associativity"
)

// SweepKeys lists the swept keys in the order they are appended when a
// template lacks them.
var SweepKeys = []string{KeySize, KeyBlockSize, KeyAssociativity}

// Template is a loaded base config. It is immutable after Load and can
// render any number of configurations.
type Template struct {
	// Path is where the template was read from, for diagnostics.
	Path string

	lines   []string
	newline string
}

// Load reads a CACTI config template from disk.
//
// Returns a CLIError with ExitConfigError if the file cannot be read.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("CACTI template not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read CACTI template", err)
	}
	t := Parse(data)
	t.Path = path
	return t, nil
}

// Parse builds a Template from raw config bytes. CRLF templates keep
// their CRLF line endings when rendered.
func Parse(data []byte) *Template {
	newline := "\n"
	if bytes.Contains(data, []byte("\r\n")) {
		newline = "\r\n"
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")

	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &Template{lines: lines, newline: newline}
}

// Render returns the template with the size, block size and
// associativity lines replaced for cfg.
//
// A line matches a key when its left-trimmed text starts with the key
// followed by whitespace or end of line, so "-associativity" does not
// match a hypothetical "-associativity-foo" and commented lines
// ("//-size (bytes) ...") are never touched. Keys absent from the
// template are appended at the end.
func (t *Template) Render(cfg model.CacheConfig) []byte {
	values := []struct {
		key   string
		value int
	}{
		{KeySize, cfg.Size},
		{KeyBlockSize, cfg.BlockSize},
		{KeyAssociativity, cfg.Associativity},
	}

	out := make([]string, 0, len(t.lines)+len(values))
	found := make([]bool, len(values))

	for _, line := range t.lines {
		replaced := false
		for i, kv := range values {
			if matchesKey(line, kv.key) {
				out = append(out, kv.key+" "+strconv.Itoa(kv.value))
				found[i] = true
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, line)
		}
	}

	for i, kv := range values {
		if !found[i] {
			out = append(out, kv.key+" "+strconv.Itoa(kv.value))
		}
	}

	return []byte(strings.Join(out, t.newline) + t.newline)
}

// Keys reports which of the three sweep keys the template defines.
// The CLI warns about missing ones since CACTI will see them appended.
func (t *Template) Keys() map[string]bool {
	keys := map[string]bool{KeySize: false, KeyBlockSize: false, KeyAssociativity: false}
	for _, line := range t.lines {
		for key := range keys {
			if matchesKey(line, key) {
				keys[key] = true
			}
		}
	}
	return keys
}

// MissingKeys returns the sweep keys the template does not define, in
// SweepKeys order.
func (t *Template) MissingKeys() []string {
	keys := t.Keys()
	var missing []string
	for _, key := range SweepKeys {
		if !keys[key] {
			missing = append(missing, key)
		}
	}
	return missing
}

func matchesKey(line, key string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, key) {
		return false
	}
	rest := trimmed[len(key):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// Write renders cfg into dir/<stem>.cfg, creating dir if needed, and
// returns the absolute path of the written file.
func (t *Template) Write(dir string, cfg model.CacheConfig) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	path, err := filepath.Abs(filepath.Join(dir, cfg.ConfigFileName()))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if err := os.WriteFile(path, t.Render(cfg), 0o644); err != nil {
		return "", fmt.Errorf("failed to write CACTI config to %s: %w", path, err)
	}
	return path, nil
}
