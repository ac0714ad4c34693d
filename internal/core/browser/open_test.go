package browser

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

type call struct {
	name string
	args []string
}

func fakeOpener(goos string, available ...string) (*Opener, *[]call) {
	var calls []call
	o := New("")
	o.goos = goos
	o.start = func(name string, args ...string) error {
		calls = append(calls, call{name, args})
		return nil
	}
	o.lookPath = func(file string) (string, error) {
		for _, a := range available {
			if a == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
	return o, &calls
}

func TestOpenPlatforms(t *testing.T) {
	tests := []struct {
		goos      string
		available []string
		wantCmd   string
	}{
		{"darwin", nil, "open"},
		{"windows", nil, "rundll32"},
		{"linux", []string{"xdg-open"}, "xdg-open"},
		{"linux", []string{"wslview"}, "wslview"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.wantCmd, func(t *testing.T) {
			t.Setenv("BROWSER", "")
			o, calls := fakeOpener(tt.goos, tt.available...)
			if err := o.Open("https://build-bench.com/b/abc"); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if len(*calls) != 1 || (*calls)[0].name != tt.wantCmd {
				t.Fatalf("calls = %+v", *calls)
			}
			args := (*calls)[0].args
			if args[len(args)-1] != "https://build-bench.com/b/abc" {
				t.Errorf("url not passed last: %v", args)
			}
		})
	}
}

func TestOpenBrowserEnv(t *testing.T) {
	t.Setenv("BROWSER", "missing:firefox")
	o, calls := fakeOpener("linux", "firefox", "xdg-open")
	if err := o.Open("https://x"); err != nil {
		t.Fatal(err)
	}
	if (*calls)[0].name != "firefox" {
		t.Errorf("calls = %+v", *calls)
	}
}

func TestOpenNoBrowser(t *testing.T) {
	t.Setenv("BROWSER", "")
	o, _ := fakeOpener("linux")
	if err := o.Open("https://x"); !errors.Is(err, ErrNoBrowser) {
		t.Errorf("Open() error = %v, want ErrNoBrowser", err)
	}
}

func TestOpenCustom(t *testing.T) {
	tests := []struct {
		custom string
		want   string
	}{
		{"firefox --new-tab {url}", "firefox --new-tab 'https://x/#it'\\''s'"},
		{"chromium", "chromium 'https://x/#it'\\''s'"},
	}
	for _, tt := range tests {
		o, calls := fakeOpener("linux")
		o.CustomCommand = tt.custom
		if err := o.Open("https://x/#it's"); err != nil {
			t.Fatal(err)
		}
		c := (*calls)[0]
		if c.name != "bash" || strings.Join(c.args, " ") != "-c "+tt.want {
			t.Errorf("custom %q: call = %+v", tt.custom, c)
		}
	}
}
