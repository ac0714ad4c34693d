// Package explorer translates session tabs into Compiler Explorer
// identifiers and client-state links.
package explorer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/share"
)

// DefaultBaseURL is the public Compiler Explorer instance
const DefaultBaseURL = "https://godbolt.org"

// benchmarkLib is the Google Benchmark build linked into every exported session
var benchmarkLib = Library{Name: "benchmark", Version: "140"}

// CompilerID maps a build-bench compiler name to its Compiler Explorer id:
// clang-9.0 -> clang900, gcc-7.3 -> g73.
func CompilerID(compiler string) string {
	if strings.HasPrefix(compiler, "clang") {
		return "clang" + strings.Replace(strings.TrimPrefix(compiler, "clang-"), ".", "", 1) + "0"
	}
	return "g" + strings.Replace(strings.TrimPrefix(compiler, "gcc-"), ".", "", 1)
}

// OptimFlag maps an optimization level to its compiler flag
func OptimFlag(optim string) string {
	switch optim {
	case models.OptimDebug:
		return "-Og"
	case models.OptimFast:
		return "-Ofast"
	case models.OptimSize:
		return "-Os"
	default:
		return "-O" + optim
	}
}

// StdVersion maps a standard year to the -std suffix compilers of the
// time accepted
func StdVersion(cppVersion string) string {
	switch cppVersion {
	case "20":
		return "2a"
	case "17":
		return "1z"
	default:
		return cppVersion
	}
}

// Flags returns the command line for opts, e.g. "-std=c++2a -O3"
func Flags(opts models.Options) string {
	return "-std=c++" + StdVersion(opts.CppVersion) + " " + OptimFlag(opts.Optim)
}

// Library is a library reference inside a client state
type Library struct {
	Name    string `json:"name"`
	Version string `json:"ver"`
}

// Compiler is one compiler pane of a client-state session
type Compiler struct {
	ID      string    `json:"id"`
	Options string    `json:"options"`
	Libs    []Library `json:"libs"`
}

// Session is one source editor of a client state
type Session struct {
	ID        int        `json:"id"`
	Language  string     `json:"language"`
	Source    string     `json:"source"`
	Compilers []Compiler `json:"compilers"`
}

// ClientState is the document Compiler Explorer accepts at /clientstate/
type ClientState struct {
	Sessions []Session `json:"sessions"`
}

// NewClientState builds one editor per tab, each compiled with that tab's options
func NewClientState(tabs []models.Tab) ClientState {
	state := ClientState{Sessions: make([]Session, 0, len(tabs))}
	for i, tab := range tabs {
		state.Sessions = append(state.Sessions, Session{
			ID:       i,
			Language: "c++",
			Source:   tab.Code,
			Compilers: []Compiler{{
				ID:      CompilerID(tab.Options.Compiler),
				Options: Flags(tab.Options),
				Libs:    []Library{benchmarkLib},
			}},
		})
	}
	return state
}

// Link returns the client-state URL opening all tabs on baseURL
func Link(baseURL string, tabs []models.Tab) (string, error) {
	if len(tabs) == 0 {
		return "", fmt.Errorf("no tabs to export")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	data, err := json.Marshal(NewClientState(tabs))
	if err != nil {
		return "", fmt.Errorf("marshal client state: %w", err)
	}

	return strings.TrimSuffix(baseURL, "/") + "/clientstate/" + share.EncodeString(string(data)), nil
}
