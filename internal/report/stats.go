package report

import (
	"encoding/json"
	"math"
	"strconv"
)

// Stats describes one numeric column.
type Stats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
}

// Describe computes Stats for each NumericColumns entry over the valid
// metrics. Values that do not parse as numbers are ignored; a column with
// no numbers has Count 0 and NaN for the rest. Std is the sample standard
// deviation (n-1), NaN for a single value.
func Describe(metrics []Metrics) []Stats {
	out := make([]Stats, 0, len(NumericColumns))
	for _, col := range NumericColumns {
		var values []float64
		for _, m := range metrics {
			if m.Status != StatusValid {
				continue
			}
			if v, err := strconv.ParseFloat(m.Values[col], 64); err == nil {
				values = append(values, v)
			}
		}
		out = append(out, describe(col, values))
	}
	return out
}

func describe(column string, values []float64) Stats {
	s := Stats{Column: column, Count: len(values)}
	if len(values) == 0 {
		s.Mean, s.Std, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	s.Min, s.Max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	if len(values) < 2 {
		s.Std = math.NaN()
		return s
	}
	sq := 0.0
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.Std = math.Sqrt(sq / float64(len(values)-1))
	return s
}

// MarshalJSON writes NaN fields as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	num := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Column string   `json:"column"`
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
	}{s.Column, s.Count, num(s.Mean), num(s.Std), num(s.Min), num(s.Max)})
}
