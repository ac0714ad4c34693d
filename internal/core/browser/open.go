// Package browser opens links in the user's web browser.
package browser

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoBrowser is returned when no way of opening a link was found
var ErrNoBrowser = errors.New("no browser found; set browser_command in config.toml")

// Opener opens URLs
type Opener struct {
	// Optional override from config. {url} is replaced by the quoted link;
	// without a placeholder the link is appended.
	CustomCommand string

	start    func(name string, args ...string) error
	lookPath func(file string) (string, error)
	goos     string
}

// New creates an opener, honoring custom when non-empty
func New(custom string) *Opener {
	return &Opener{
		CustomCommand: custom,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		lookPath: exec.LookPath,
		goos:     runtime.GOOS,
	}
}

// Open launches the browser on url without waiting for it
func (o *Opener) Open(url string) error {
	if o.CustomCommand != "" {
		return o.openCustom(url)
	}

	switch o.goos {
	case "darwin":
		return o.start("open", url)
	case "windows":
		return o.start("rundll32", "url.dll,FileProtocolHandler", url)
	}

	// $BROWSER may list several commands separated by colons
	if env := os.Getenv("BROWSER"); env != "" {
		for _, candidate := range strings.Split(env, ":") {
			if candidate == "" {
				continue
			}
			if _, err := o.lookPath(candidate); err == nil {
				return o.start(candidate, url)
			}
		}
	}
	for _, candidate := range []string{"xdg-open", "sensible-browser", "x-www-browser", "wslview"} {
		if _, err := o.lookPath(candidate); err == nil {
			return o.start(candidate, url)
		}
	}
	return ErrNoBrowser
}

func (o *Opener) openCustom(url string) error {
	cmdStr := o.CustomCommand
	if strings.Contains(cmdStr, "{url}") {
		cmdStr = strings.ReplaceAll(cmdStr, "{url}", shellEscape(url))
	} else {
		cmdStr += " " + shellEscape(url)
	}
	return o.start("bash", "-c", cmdStr)
}

// shellEscape escapes a string for safe use in shell commands
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
