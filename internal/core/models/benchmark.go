package models

import (
	"encoding/json"
	"sort"
)

// Benchmark is one entry of a result graph returned by the build service.
// The service decides which numeric metrics it reports, so every numeric
// field other than the name is collected into Metrics and the raw JSON is
// kept for re-export.
type Benchmark struct {
	Name    string
	Metrics map[string]float64
	Raw     json.RawMessage
}

// UnmarshalJSON collects the name and all numeric fields of a result entry
func (b *Benchmark) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	b.Raw = append(json.RawMessage(nil), data...)
	b.Metrics = make(map[string]float64)
	b.Name = ""

	for key, raw := range fields {
		switch key {
		case "name", "title":
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && b.Name == "" {
				b.Name = s
			}
		default:
			var f float64
			if err := json.Unmarshal(raw, &f); err == nil {
				b.Metrics[key] = f
			}
		}
	}
	return nil
}

// MarshalJSON writes the entry back exactly as the service sent it
func (b Benchmark) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	out := make(map[string]interface{}, len(b.Metrics)+1)
	for k, v := range b.Metrics {
		out[k] = v
	}
	out["name"] = b.Name
	return json.Marshal(out)
}

// Graph is the ordered benchmark result of one build
type Graph []Benchmark

// MetricNames returns the sorted union of metric keys across all entries
func (g Graph) MetricNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range g {
		for k := range b.Metrics {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Max returns the largest value of metric across the graph
func (g Graph) Max(metric string) float64 {
	var max float64
	for _, b := range g {
		if v := b.Metrics[metric]; v > max {
			max = v
		}
	}
	return max
}
