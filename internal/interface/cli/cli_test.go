package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/neilberkman/qbench/internal/core/config"
	"github.com/neilberkman/qbench/internal/core/models"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"a  b\n c", 10, "a b c"},
		{"abcdefghijkl", 8, "abcde..."},
	}
	for _, tt := range tests {
		if got := truncateTitle(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateTitle(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFlagOptions(t *testing.T) {
	cfg = config.Default()
	cfg.Defaults = models.Options{Compiler: "gcc-10.1", CppVersion: "17", Optim: "2", Lib: "gnu"}
	defer func() { cfg = nil }()

	got := flagOptions("", "20", "", "llvm")
	want := models.Options{Compiler: "gcc-10.1", CppVersion: "20", Optim: "2", Lib: "llvm"}
	if got != want {
		t.Errorf("flagOptions() = %+v, want %+v", got, want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn logger output = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "error", true).Debug("verbose")
	if !strings.Contains(buf.String(), "verbose") {
		t.Errorf("--verbose did not enable debug logging: %q", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"build", "get", "share", "open", "explorer", "history", "stats", "search", "export", "watch", "mirror", "serve-mcp", "tui"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}
