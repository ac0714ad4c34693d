// Package report turns a session's tabs and results into the views the
// command line surfaces print: an aligned text table, JSON, YAML and a
// markdown document.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/progress"
	"github.com/neilberkman/qbench/internal/core/session"
	"gopkg.in/yaml.v3"
)

// Report is a printable snapshot of a session
type Report struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	URL        string      `json:"url,omitempty" yaml:"url,omitempty"`
	Notice     string      `json:"notice,omitempty" yaml:"notice,omitempty"`
	Tabs       []Tab       `json:"tabs" yaml:"tabs"`
	Benchmarks []Benchmark `json:"benchmarks,omitempty" yaml:"benchmarks,omitempty"`
}

// Tab is one tab of a report
type Tab struct {
	Title        string `json:"title" yaml:"title"`
	Compiler     string `json:"compiler" yaml:"compiler"`
	CppVersion   string `json:"cppVersion" yaml:"cpp_version"`
	Optim        string `json:"optim" yaml:"optim"`
	Lib          string `json:"lib" yaml:"lib"`
	Message      string `json:"message,omitempty" yaml:"message,omitempty"`
	Code         string `json:"code,omitempty" yaml:"code,omitempty"`
	Includes     string `json:"includes,omitempty" yaml:"includes,omitempty"`
	Assembly     string `json:"assembly,omitempty" yaml:"assembly,omitempty"`
	Preprocessed string `json:"preprocessed,omitempty" yaml:"preprocessed,omitempty"`
}

// Benchmark is one entry of the result graph
type Benchmark struct {
	Name    string             `json:"name" yaml:"name"`
	Metrics map[string]float64 `json:"metrics" yaml:"metrics"`
}

// Detail selects which per-tab outputs a report carries
type Detail struct {
	Code         bool
	Includes     bool
	Assembly     bool
	Preprocessed bool
}

// Full carries every per-tab output
var Full = Detail{Code: true, Includes: true, Assembly: true, Preprocessed: true}

// FromSession snapshots s. pageURL is the build page link, if any.
func FromSession(s *session.Session, pageURL string, d Detail) Report {
	r := Report{
		ID:     s.Identity(),
		URL:    pageURL,
		Notice: s.Notice(),
	}
	res := s.Results()
	for i, t := range s.Tabs() {
		tab := Tab{
			Title:      t.Title,
			Compiler:   t.Options.Compiler,
			CppVersion: t.Options.CppVersion,
			Optim:      t.Options.Optim,
			Lib:        t.Options.Lib,
			Message:    t.Message,
		}
		if d.Code {
			tab.Code = t.Code
		}
		if res != nil {
			if d.Includes {
				tab.Includes = at(res.Includes, i)
			}
			if d.Assembly {
				tab.Assembly = at(res.Assembly, i)
			}
			if d.Preprocessed {
				tab.Preprocessed = at(res.Preprocessed, i)
			}
		}
		r.Tabs = append(r.Tabs, tab)
	}
	if res != nil {
		r.Benchmarks = FromGraph(res.Graph)
	}
	return r
}

// FromGraph converts a result graph
func FromGraph(g models.Graph) []Benchmark {
	out := make([]Benchmark, 0, len(g))
	for _, b := range g {
		out = append(out, Benchmark{Name: b.Name, Metrics: b.Metrics})
	}
	return out
}

func at(items []string, i int) string {
	if i < len(items) {
		return items[i]
	}
	return ""
}

// MetricNames returns the sorted union of metric keys
func (r Report) MetricNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range r.Benchmarks {
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

// WriteText prints the tabs and a bar chart of every metric
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder

	if r.ID != "" {
		fmt.Fprintf(&b, "Build %s\n", r.ID)
	}
	if r.URL != "" {
		fmt.Fprintf(&b, "%s\n", r.URL)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	for _, t := range r.Tabs {
		fmt.Fprintf(&b, "  %-20s %s %s -O%s %s\n", t.Title, t.Compiler, t.CppVersion, t.Optim, t.Lib)
		if t.Message != "" {
			for _, line := range strings.Split(strings.TrimRight(t.Message, "\n"), "\n") {
				fmt.Fprintf(&b, "      %s\n", line)
			}
		}
	}

	if len(r.Benchmarks) > 0 {
		nameWidth := 0
		for _, bm := range r.Benchmarks {
			if len(bm.Name) > nameWidth {
				nameWidth = len(bm.Name)
			}
		}
		for _, metric := range r.MetricNames() {
			max := 0.0
			for _, bm := range r.Benchmarks {
				if v := bm.Metrics[metric]; v > max {
					max = v
				}
			}
			fmt.Fprintf(&b, "\n%s\n", metric)
			for _, bm := range r.Benchmarks {
				v := bm.Metrics[metric]
				pct := 0.0
				if max > 0 {
					pct = v / max * 100
				}
				fmt.Fprintf(&b, "  %-*s %s %s\n", nameWidth, bm.Name, progress.Bar(pct, 30), FormatValue(v))
			}
		}
	}

	if r.Notice != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Notice)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatValue prints a metric value with thousands separators
func FormatValue(v float64) string {
	if v == float64(int64(v)) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}

// YAML renders the report as YAML
func (r Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

const markdownTemplate = `# {{title}}
{{#url}}

Build page: {{{url}}}
{{/url}}
{{#tabs}}

## {{{title}}}

- Compiler: {{compiler}}
- Standard: {{cppVersion}}
- Optimization: {{optim}}
- Library: {{lib}}
{{#message}}

> {{{message}}}
{{/message}}
{{#code}}

` + "```cpp" + `
{{{code}}}
` + "```" + `
{{/code}}
{{/tabs}}
{{#hasResults}}

## Results

| Benchmark |{{#metrics}} {{.}} |{{/metrics}}
|---|{{#metrics}}---:|{{/metrics}}
{{#rows}}
| {{{name}}} |{{#values}} {{.}} |{{/values}}
{{/rows}}
{{/hasResults}}
{{#notice}}

{{{notice}}}
{{/notice}}
`

// Markdown renders the report as a markdown document
func (r Report) Markdown() (string, error) {
	metrics := r.MetricNames()
	rows := make([]map[string]interface{}, 0, len(r.Benchmarks))
	for _, b := range r.Benchmarks {
		values := make([]string, len(metrics))
		for i, m := range metrics {
			values[i] = FormatValue(b.Metrics[m])
		}
		rows = append(rows, map[string]interface{}{"name": b.Name, "values": values})
	}

	tabs := make([]map[string]interface{}, len(r.Tabs))
	for i, t := range r.Tabs {
		tabs[i] = map[string]interface{}{
			"title":      t.Title,
			"compiler":   t.Compiler,
			"cppVersion": t.CppVersion,
			"optim":      t.Optim,
			"lib":        t.Lib,
			"message":    strings.ReplaceAll(strings.TrimRight(t.Message, "\n"), "\n", "\n> "),
			"code":       strings.TrimRight(t.Code, "\n"),
		}
	}

	title := "Build benchmark"
	if r.ID != "" {
		title += " " + r.ID
	}

	out, err := mustache.Render(markdownTemplate, map[string]interface{}{
		"title":      title,
		"url":        r.URL,
		"tabs":       tabs,
		"hasResults": len(r.Benchmarks) > 0,
		"metrics":    metrics,
		"rows":       rows,
		"notice":     r.Notice,
	})
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
