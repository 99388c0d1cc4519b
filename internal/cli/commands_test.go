package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected a CLIError, got %v", err)
	assert.Equal(t, code, cliErr.Code)
}

func TestCheckCommand(t *testing.T) {
	out, _, err := execute(t, "check", "2048", "32", "1")
	require.NoError(t, err)
	assert.Equal(t, "cacti_2048_32_1: valid (64 blocks, 64 sets)\n", out)

	out, _, err = execute(t, "check", "2048", "128", "0")
	requireExitCode(t, err, model.ExitInvalidConfig)
	assert.Contains(t, out, "cacti_2048_128_0: invalid")
	assert.Contains(t, out, "  - fully associative cache with block 128 B > 64 B does not converge\n")

	_, _, err = execute(t, "check", "2k", "32", "1")
	requireExitCode(t, err, model.ExitConfigError)
}

func TestCheckCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "check", "2048", "128", "8", "--json")
	requireExitCode(t, err, model.ExitInvalidConfig)

	var got verdictJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "cacti_2048_128_8", got.Config)
	assert.False(t, got.Valid)
	assert.Equal(t, 16, got.BlockCount)

	var rules []string
	for _, v := range got.Violations {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, string(model.RuleLargeBlockHighAssoc))
}

func TestPlanCommand(t *testing.T) {
	out, _, err := execute(t, "plan", "--size", "2048", "--block", "32,128", "--assoc", "0,1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.True(t, strings.HasPrefix(lines[1], "cacti_2048_32_0 "))
	assert.True(t, strings.HasPrefix(lines[2], "cacti_2048_32_1 "))
	assert.True(t, strings.HasPrefix(lines[3], "cacti_2048_128_0 "))
	assert.Contains(t, lines[3], "invalid")
	assert.Contains(t, out, "4 configuration(s): 3 would run, 1 pre-detected invalid")
}

func TestPlanCommand_SweepFileInvalidOnlyJSON(t *testing.T) {
	sweepFile := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(sweepFile, []byte(
		"template: cache.cfg\nsizes: [2048]\nblocks: [32, 128]\nassociativities: [0, 1, 8]\n"), 0644))

	out, _, err := execute(t, "plan", "--sweep", sweepFile, "--invalid-only", "--json")
	require.NoError(t, err)

	var got struct {
		Total          int           `json:"total"`
		Valid          int           `json:"valid"`
		Invalid        int           `json:"invalid"`
		Configurations []verdictJSON `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 6, got.Total)
	assert.Equal(t, got.Invalid, len(got.Configurations))
	for _, c := range got.Configurations {
		assert.False(t, c.Valid, c.Config)
	}
}

func TestPlanCommand_MissingAxes(t *testing.T) {
	_, _, err := execute(t, "plan", "--size", "2048")
	requireExitCode(t, err, model.ExitConfigError)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("b 2\na 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("a 10\n"), 0644))

	out, _, err := execute(t, "export", dir)
	require.NoError(t, err)
	assert.Equal(t, "name,a,b\na,1,2\nb,10,\n", out)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	_, _, err = execute(t, "export", dir, "--ext", ".txt", "-o", csvPath)
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "name,a,b\na,1,2\nb,10,\n", string(data))
}

// writeFakeCacti installs a shell script standing in for CACTI. It fails
// for fully associative configs and prints a short report otherwise.
func writeFakeCacti(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CACTI is a POSIX shell script")
	}

	script := `#!/bin/sh
if grep -q '^-associativity 0$' "$2"; then
  echo "ERROR: no valid data array organizations found"
  exit 1
fi
echo "Cache size                    : $(sed -n 's/^-size (bytes) //p' "$2")"
echo "    Access time (ns): 0.5"
echo "    Cycle time (ns): 0.25"
echo "    Cache height x width (mm): 0.5 x 0.5"
`
	path := filepath.Join(t.TempDir(), "cacti")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

// TestRunAndSummarize drives a whole sweep through the local backend and
// summarizes the result directory it produced.
func TestRunAndSummarize(t *testing.T) {
	bin := writeFakeCacti(t)
	work := t.TempDir()
	tmpl := filepath.Join(work, "cache.cfg")
	require.NoError(t, os.WriteFile(tmpl, []byte(
		"-size (bytes) 1024\n-block size (bytes) 64\n-associativity 2\n-technology (u) 0.032\n"), 0644))
	results := filepath.Join(work, "results")

	out, _, err := execute(t, "run",
		"--cacti", bin, "--template", tmpl, "--output", results,
		"--size", "2048", "--block", "32,128", "--assoc", "0,1", "--json")
	require.NoError(t, err)

	var batch batchJSON
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.NotEmpty(t, batch.Batch)
	assert.Equal(t, "local", batch.Backend)
	assert.Equal(t, map[string]int{"ok": 2, "invalid": 1, "failed": 1}, batch.Counts)
	require.Len(t, batch.Outcomes, 4)
	assert.Equal(t, "failed", batch.Outcomes[0].Status)
	assert.Equal(t, 1, batch.Outcomes[0].ExitCode)
	assert.Equal(t, "invalid", batch.Outcomes[2].Status)

	for _, name := range []string{"cacti_2048_32_0.out", "cacti_2048_32_1.out", "cacti_2048_128_0.out", "cacti_2048_128_1.out"} {
		assert.FileExists(t, filepath.Join(results, name))
	}
	assert.FileExists(t, filepath.Join(results, "configs", "cacti_2048_32_1.cfg"))
	assert.NoFileExists(t, filepath.Join(results, "configs", "cacti_2048_128_0.cfg"))

	summary := filepath.Join(work, "summary.csv")
	out, _, err = execute(t, "summarize", results, "-o", summary, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Analyzed 4 result file(s)")
	assert.Contains(t, out, "valid:   2")
	assert.Contains(t, out, "access_time")

	f, err := os.Open(summary)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "filename", rows[0][0])

	// Rows are in file name order: 128_0, 128_1, 32_0, 32_1.
	assert.Equal(t, []string{"invalid", "valid", "error", "valid"},
		[]string{rows[1][1], rows[2][1], rows[3][1], rows[4][1]})
	assert.Equal(t, "0.25", rows[2][10], "area_mm2")
	assert.Equal(t, "2", rows[2][11], "efficiency")

	db := filepath.Join(work, "summary.sqlite3")
	_, _, err = execute(t, "summarize", results, "-o", db)
	require.NoError(t, err)
	_, _, err = execute(t, "summarize", results, "-o", db)
	requireExitCode(t, err, model.ExitIOError)
}

func TestRunCommand_MissingTemplate(t *testing.T) {
	_, _, err := execute(t, "run", "--size", "2048", "--block", "32", "--assoc", "1")
	requireExitCode(t, err, model.ExitConfigError)
}

func TestRunCommand_ToolNotFound(t *testing.T) {
	tmpl := filepath.Join(t.TempDir(), "cache.cfg")
	require.NoError(t, os.WriteFile(tmpl, []byte("-size (bytes) 1024\n"), 0644))

	_, _, err := execute(t, "run",
		"--cacti", filepath.Join(t.TempDir(), "missing-cacti"), "--template", tmpl,
		"--output", t.TempDir(), "--size", "2048", "--block", "32", "--assoc", "1")
	requireExitCode(t, err, model.ExitToolNotFound)
}

func TestEnvFile_ExplicitMissing(t *testing.T) {
	_, _, err := execute(t, "check", "2048", "32", "1", "--env-file", filepath.Join(t.TempDir(), "nope.env"))
	requireExitCode(t, err, model.ExitConfigError)
}
