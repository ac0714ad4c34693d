package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

func sampleReport() Report {
	return Report{
		ID:  "abc123",
		URL: "https://build-bench.com/b/abc123",
		Tabs: []Tab{
			{Title: "cstdio", Compiler: "clang-9.0", CppVersion: "20", Optim: "3", Lib: "gnu", Code: "#include <cstdio>"},
			{Title: "iostream", Compiler: "clang-9.0", CppVersion: "20", Optim: "3", Lib: "gnu", Message: "warning: unused"},
		},
		Benchmarks: []Benchmark{
			{Name: "cstdio", Metrics: map[string]float64{"time": 1500}},
			{Name: "iostream", Metrics: map[string]float64{"time": 3000, "mem": 12.5}},
		},
	}
}

func TestMetricNames(t *testing.T) {
	got := sampleReport().MetricNames()
	if len(got) != 2 || got[0] != "mem" || got[1] != "time" {
		t.Errorf("MetricNames() = %v, want [mem time]", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1500, "1,500"},
		{12.5, "12.5"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Build abc123", "/b/abc123", "cstdio", "warning: unused", "time", "3,000", "1,500"} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteText() output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdown(t *testing.T) {
	md, err := sampleReport().Markdown()
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	for _, want := range []string{
		"# Build benchmark abc123",
		"## cstdio",
		"```cpp\n#include <cstdio>\n```",
		"> warning: unused",
		"| Benchmark | mem | time |",
		"| iostream | 12.5 | 3,000 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q:\n%s", want, md)
		}
	}
}

func TestYAML(t *testing.T) {
	out, err := sampleReport().YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	if !strings.Contains(string(out), "cpp_version: \"20\"") {
		t.Errorf("YAML() = %s, want cpp_version key", out)
	}
}

func TestFromSession(t *testing.T) {
	s := session.New()
	tk, _, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit() error = %v", err)
	}
	resp := &buildbench.Response{
		ID:       "xyz",
		Result:   []byte(`[{"name":"cstdio","time":10},{"name":"iostream","time":20}]`),
		Includes: []buildbench.Text{"a.h", "b.h"},
	}
	if _, err := s.CompleteSubmit(tk, resp, nil); err != nil {
		t.Fatalf("CompleteSubmit() error = %v", err)
	}

	r := FromSession(s, "u", Detail{Includes: true})
	if r.ID != "xyz" || r.URL != "u" {
		t.Errorf("FromSession() id/url = %q/%q, want xyz/u", r.ID, r.URL)
	}
	if len(r.Tabs) != 2 || r.Tabs[1].Includes != "b.h" {
		t.Errorf("FromSession() tabs = %+v, want includes aligned", r.Tabs)
	}
	if r.Tabs[0].Code != "" {
		t.Error("FromSession() included code without Detail.Code")
	}
	if len(r.Benchmarks) != 2 || r.Benchmarks[1].Metrics["time"] != 20 {
		t.Errorf("FromSession() benchmarks = %+v", r.Benchmarks)
	}
}
