package models

import (
	"encoding/json"
	"testing"
)

func TestTabValidation(t *testing.T) {
	tests := []struct {
		name    string
		tab     Tab
		wantErr bool
	}{
		{
			name: "valid tab",
			tab: Tab{
				Code:    "int main() {}",
				Title:   "cstdio",
				Options: DefaultOptions(),
			},
			wantErr: false,
		},
		{
			name: "missing title",
			tab: Tab{
				Options: DefaultOptions(),
			},
			wantErr: true,
		},
		{
			name: "missing compiler",
			tab: Tab{
				Title: "iostream",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tab.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsMerge(t *testing.T) {
	base := DefaultOptions()
	got := base.Merge(Options{Compiler: "gcc-9.2", Optim: OptimSize})

	want := Options{Compiler: "gcc-9.2", CppVersion: "20", Optim: "S", Lib: "gnu"}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestBenchmarkUnmarshal(t *testing.T) {
	data := []byte(`{"name":"cstdio","time":1.25,"memory":52000,"flags":"-O3"}`)

	var b Benchmark
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if b.Name != "cstdio" {
		t.Errorf("Name = %q, want %q", b.Name, "cstdio")
	}
	if b.Metrics["time"] != 1.25 {
		t.Errorf("Metrics[time] = %v, want 1.25", b.Metrics["time"])
	}
	if _, ok := b.Metrics["flags"]; ok {
		t.Error("non-numeric field should not be a metric")
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != string(data) {
		t.Errorf("Marshal() = %s, want raw input preserved", out)
	}
}

func TestGraphMetricNames(t *testing.T) {
	g := Graph{
		{Name: "a", Metrics: map[string]float64{"time": 1, "memory": 3}},
		{Name: "b", Metrics: map[string]float64{"time": 2, "size": 4}},
	}

	names := g.MetricNames()
	want := []string{"memory", "size", "time"}
	if len(names) != len(want) {
		t.Fatalf("MetricNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("MetricNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if got := g.Max("time"); got != 2 {
		t.Errorf("Max(time) = %v, want 2", got)
	}
}
