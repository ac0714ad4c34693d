package models

import (
	"errors"
)

// Symbolic optimization levels accepted by the build service
const (
	OptimDebug = "G"
	OptimFast  = "F"
	OptimSize  = "S"
)

// Options are the compiler settings applied to one tab
type Options struct {
	Compiler   string `json:"compiler" yaml:"compiler" toml:"compiler"`       // e.g. clang-9.0, gcc-7.3
	CppVersion string `json:"cppVersion" yaml:"cppVersion" toml:"cpp_version"` // language standard year: 11, 14, 17, 20
	Optim      string `json:"optim" yaml:"optim" toml:"optim"`                // 0-3, or G/F/S
	Lib        string `json:"lib" yaml:"lib" toml:"lib"`                      // gnu or llvm
}

// DefaultOptions returns the options a fresh session starts with
func DefaultOptions() Options {
	return Options{
		Compiler:   "clang-9.0",
		CppVersion: "20",
		Optim:      "3",
		Lib:        "gnu",
	}
}

// Merge returns o with every non-empty field of override applied
func (o Options) Merge(override Options) Options {
	if override.Compiler != "" {
		o.Compiler = override.Compiler
	}
	if override.CppVersion != "" {
		o.CppVersion = override.CppVersion
	}
	if override.Optim != "" {
		o.Optim = override.Optim
	}
	if override.Lib != "" {
		o.Lib = override.Lib
	}
	return o
}

// Validate checks that the options name a compiler
func (o Options) Validate() error {
	if o.Compiler == "" {
		return errors.New("compiler is required")
	}
	return nil
}

// Tab is one code unit of a benchmark session. Code, title, options and the
// last diagnostic travel together so a session can never disagree about
// how many tabs it has.
type Tab struct {
	Code    string
	Title   string
	Options Options
	Message string // Last compiler/service output for this tab
}

// Validate checks if the tab has required fields
func (t *Tab) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	return t.Options.Validate()
}
