package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Bar renders pct (0-100, clamped) as a fixed-width bar
func Bar(pct float64, width int) string {
	if width < 1 {
		width = 1
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(float64(width) * pct / 100)
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Reporter draws an estimator's value on a terminal line
type Reporter struct {
	writer    io.Writer
	label     string
	width     int
	startTime time.Time
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer, label string) *Reporter {
	return &Reporter{
		writer:    w,
		label:     label,
		width:     40,
		startTime: time.Now(),
	}
}

// Update redraws the bar with the given percentage
func (r *Reporter) Update(pct float64) {
	elapsed := time.Since(r.startTime).Round(time.Second)
	_, _ = fmt.Fprintf(r.writer, "\r[%s] %3.0f%% %s | %s", Bar(pct, r.width), pct, elapsed, r.label)
}

// Finish clears the progress line
func (r *Reporter) Finish() {
	_, _ = fmt.Fprintf(r.writer, "\r\033[K")
}
