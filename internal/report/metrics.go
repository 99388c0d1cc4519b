package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// NotAvailable fills columns a report does not provide.
const NotAvailable = "N/A"

// Report status values. They differ from model.RunStatus because they are
// inferred from file contents alone, and files written by other tools
// are summarized too.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Metric column names, in output order.
const (
	ColFilename      = "filename"
	ColStatus        = "status"
	ColCacheSize     = "cache_size"
	ColBlockSize     = "block_size"
	ColAssociativity = "associativity"
	ColAccessTime    = "access_time"
	ColCycleTime     = "cycle_time"
	ColReadEnergy    = "read_energy"
	ColWriteEnergy   = "write_energy"
	ColLeakagePower  = "leakage_power"
	ColArea          = "area_mm2"
	ColEfficiency    = "efficiency"
	ColSets          = "sets"
	ColBanks         = "banks"
)

// Columns is the header of a metrics table.
var Columns = []string{
	ColFilename, ColStatus, ColCacheSize, ColBlockSize, ColAssociativity,
	ColAccessTime, ColCycleTime, ColReadEnergy, ColWriteEnergy,
	ColLeakagePower, ColArea, ColEfficiency, ColSets, ColBanks,
}

// NumericColumns are the columns described by Describe.
var NumericColumns = []string{
	ColAccessTime, ColCycleTime, ColReadEnergy, ColWriteEnergy,
	ColLeakagePower, ColArea, ColEfficiency,
}

// ReportExt is the extension of CACTI result files.
const ReportExt = ".out"

var patterns = []struct {
	column string
	re     *regexp.Regexp
}{
	{ColCacheSize, regexp.MustCompile(`Cache size\s*:\s*(\d+)`)},
	{ColBlockSize, regexp.MustCompile(`Block size\s*:\s*(\d+)`)},
	{ColAssociativity, regexp.MustCompile(`Associativity\s*:\s*(\d+)`)},
	{ColAccessTime, regexp.MustCompile(`Access time \(ns\):\s*([\d.]+)`)},
	{ColCycleTime, regexp.MustCompile(`Cycle time \(ns\):\s*([\d.]+)`)},
	{ColReadEnergy, regexp.MustCompile(`Read Energy \(nJ\):\s*([\d.]+)`)},
	{ColWriteEnergy, regexp.MustCompile(`Write Energy \(nJ\):\s*([\d.]+)`)},
	{ColLeakagePower, regexp.MustCompile(`Leakage Power Closed Page \(mW\):\s*([\d.]+)`)},
	{ColSets, regexp.MustCompile(`Number of sets\s*:\s*(\d+)`)},
	{ColBanks, regexp.MustCompile(`Cache banks \(UCA\)\s*:\s*(\d+)`)},
}

var areaPattern = regexp.MustCompile(`Cache height x width \(mm\):\s*([\d.]+) x ([\d.]+)`)

// Metrics is one summarized result file.
type Metrics struct {
	Filename string
	Status   string

	// Reason explains an invalid or error status.
	Reason string

	// Values holds the extracted columns; absent keys render as N/A.
	Values map[string]string
}

// Get returns the value of column, or NotAvailable.
func (m Metrics) Get(column string) string {
	switch column {
	case ColFilename:
		return m.Filename
	case ColStatus:
		return m.Status
	}
	if v, ok := m.Values[column]; ok && v != "" {
		return v
	}
	return NotAvailable
}

// Row returns the metrics in Columns order.
func (m Metrics) Row() []string {
	row := make([]string, len(Columns))
	for i, c := range Columns {
		row[i] = m.Get(c)
	}
	return row
}

// ParseReport summarizes one result file.
//
// Files carrying the pre-detected marker are invalid, files carrying the
// run-error marker or the word ERROR are errors; both keep only filename
// and status. Otherwise the geometry is taken from the file name
// (cacti_<size>_<block>_<assoc>.out) and overridden by whatever the report
// itself states.
func ParseReport(filename string, data []byte) Metrics {
	text := decode(data)
	m := Metrics{Filename: filename, Values: make(map[string]string)}

	if strings.Contains(text, model.MarkerInvalid) {
		m.Status = StatusInvalid
		m.Reason = "Invalid configuration"
		if _, after, ok := strings.Cut(text, model.MarkerReason); ok {
			reason, _, _ := strings.Cut(after, model.MarkerReason)
			m.Reason = strings.TrimSpace(reason)
		}
		return m
	}
	if strings.Contains(text, model.MarkerRunError) || strings.Contains(text, "ERROR") {
		m.Status = StatusError
		m.Reason = "Runtime error"
		return m
	}

	m.Status = StatusValid
	for col, v := range geometryFromName(filename) {
		m.Values[col] = v
	}

	for _, p := range patterns {
		if match := p.re.FindStringSubmatch(text); match != nil {
			m.Values[p.column] = match[1]
		}
	}

	if match := areaPattern.FindStringSubmatch(text); match != nil {
		h, errH := strconv.ParseFloat(match[1], 64)
		w, errW := strconv.ParseFloat(match[2], 64)
		if errH == nil && errW == nil {
			m.Values[ColArea] = formatFloat(h * w)
		}
	}

	access, errA := strconv.ParseFloat(m.Values[ColAccessTime], 64)
	cycle, errC := strconv.ParseFloat(m.Values[ColCycleTime], 64)
	if errA == nil && errC == nil && cycle != 0 {
		m.Values[ColEfficiency] = formatFloat(access / cycle)
	}
	return m
}

// geometryFromName splits "cacti_2048_32_4.out" into its parameters. Short
// names fall back to a 2048 B cache and unknown block/associativity.
func geometryFromName(filename string) map[string]string {
	parts := strings.Split(strings.TrimSuffix(filename, filepath.Ext(filename)), "_")
	values := map[string]string{
		ColCacheSize:     "2048",
		ColBlockSize:     "?",
		ColAssociativity: "?",
	}
	for i, col := range []string{ColCacheSize, ColBlockSize, ColAssociativity} {
		if len(parts) > i+1 {
			values[col] = parts[i+1]
		}
	}
	return values
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Summarize parses every *.out file of dir, in name order.
func Summarize(dir string) ([]Metrics, error) {
	paths, err := listFiles(dir, ReportExt)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitIOError,
			fmt.Sprintf("failed to read result directory %s", dir), err)
	}

	metrics := make([]Metrics, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			metrics = append(metrics, Metrics{
				Filename: filepath.Base(path),
				Status:   StatusError,
				Reason:   fmt.Sprintf("read error: %v", err),
			})
			continue
		}
		metrics = append(metrics, ParseReport(filepath.Base(path), data))
	}
	return metrics, nil
}

// MetricsTable lays out metrics under Columns.
func MetricsTable(metrics []Metrics) *Table {
	t := &Table{Header: append([]string(nil), Columns...)}
	for _, m := range metrics {
		t.Rows = append(t.Rows, m.Row())
	}
	return t
}

// CountStatus returns how many metrics have the given status.
func CountStatus(metrics []Metrics, status string) int {
	n := 0
	for _, m := range metrics {
		if m.Status == status {
			n++
		}
	}
	return n
}
