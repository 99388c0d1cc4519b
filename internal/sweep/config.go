package sweep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// Defaults applied by Resolve when the sweep file leaves a field empty.
const (
	DefaultBinary    = "cacti"
	DefaultOutputDir = "resultados_cacti"
	DefaultTimeout   = 10 * time.Minute

	// EnvBinary and EnvImage override the binary path and container
	// image when the sweep file does not set them.
	EnvBinary = "CACTI_BIN"
	EnvImage  = "CACTI_IMAGE"
)

// Duration is a time.Duration that decodes from Go duration strings
// ("90s", "5m") in both YAML and JSON sweep files.
type Duration struct {
	time.Duration
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	d.set = true
	return nil
}

// SetTimeout overrides the per-invocation timeout; zero disables it.
func (c *Config) SetTimeout(d time.Duration) {
	c.Timeout = Duration{Duration: d, set: true}
}

// DockerConfig selects the container backend. A nil *DockerConfig or an
// empty Image means CACTI runs as a local process.
type DockerConfig struct {
	// Image is the container image whose entrypoint is the CACTI binary.
	Image string `yaml:"image" json:"image"`

	// Pull requests an image pull before the first invocation.
	Pull bool `yaml:"pull" json:"pull"`
}

// Config is the parsed sweep file. Relative paths are resolved against
// the directory holding the sweep file by Resolve.
type Config struct {
	Binary    string   `yaml:"cacti" json:"cacti"`
	Template  string   `yaml:"template" json:"template"`
	OutputDir string   `yaml:"output" json:"output"`
	ConfigDir string   `yaml:"configs" json:"configs"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`

	Sizes           []int `yaml:"sizes" json:"sizes"`
	Blocks          []int `yaml:"blocks" json:"blocks"`
	Associativities []int `yaml:"associativities" json:"associativities"`

	// SkipInvalid suppresses the stamp file for pre-detected invalid
	// configurations; they are still reported in the batch result.
	SkipInvalid bool `yaml:"skip_invalid" json:"skip_invalid"`

	Docker *DockerConfig `yaml:"docker" json:"docker"`
}

// LoadConfig reads a sweep file. Files ending in .json or .jsonc are
// parsed as JSON with comments; everything else is parsed as YAML.
//
// Returns a CLIError with ExitConfigError if the file cannot be read or
// parsed. Relative paths inside the file are resolved against its
// directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("sweep file not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read sweep file", err)
	}

	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse sweep file %s", path), err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// ParseConfig decodes sweep file contents. ext selects the format
// (".json"/".jsonc" for JSON with comments, anything else for YAML).
func ParseConfig(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// Strip comments and trailing commas so hand-edited sweep files
		// can annotate their axes.
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// resolvePaths makes Template, OutputDir and ConfigDir absolute relative
// to baseDir. The binary is left alone when it is a bare command name so
// that PATH lookup still applies.
func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Template = abs(c.Template)
	c.OutputDir = abs(c.OutputDir)
	c.ConfigDir = abs(c.ConfigDir)
	if strings.ContainsRune(c.Binary, filepath.Separator) {
		c.Binary = abs(c.Binary)
	}
}

// Resolve fills defaults (binary from CACTI_BIN or "cacti", output
// directory, config directory under the output directory, timeout,
// image from CACTI_IMAGE) and validates the result.
func (c *Config) Resolve() error {
	if c.Binary == "" {
		c.Binary = os.Getenv(EnvBinary)
	}
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.ConfigDir == "" {
		c.ConfigDir = filepath.Join(c.OutputDir, "configs")
	}
	if !c.Timeout.set {
		c.Timeout = Duration{Duration: DefaultTimeout, set: true}
	}
	if c.Docker != nil && c.Docker.Image == "" {
		c.Docker.Image = os.Getenv(EnvImage)
	}

	if errs := c.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return model.NewCLIError(model.ExitConfigError, strings.Join(msgs, "; "))
	}
	return nil
}

// UsesDocker reports whether the container backend is selected.
func (c *Config) UsesDocker() bool {
	return c.Docker != nil && c.Docker.Image != ""
}

// ValidationError is a single problem found in a sweep file.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("sweep file: %s: %s", e.Field, e.Message)
}

// Validate checks the structural requirements of a sweep: a template and
// three non-empty axes. It does not apply the validity predicate; cache
// geometries the tool cannot handle are a per-configuration outcome, not
// a sweep file error.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Template == "" {
		errs = append(errs, ValidationError{Field: "template", Message: "a base CACTI config template is required"})
	}
	if len(c.Sizes) == 0 {
		errs = append(errs, ValidationError{Field: "sizes", Message: "at least one cache size is required"})
	}
	if len(c.Blocks) == 0 {
		errs = append(errs, ValidationError{Field: "blocks", Message: "at least one block size is required"})
	}
	if len(c.Associativities) == 0 {
		errs = append(errs, ValidationError{Field: "associativities", Message: "at least one associativity is required"})
	}
	if c.Docker != nil && c.Docker.Image == "" {
		errs = append(errs, ValidationError{Field: "docker.image", Message: "an image is required when the docker backend is configured (or set " + EnvImage + ")"})
	}

	return errs
}
