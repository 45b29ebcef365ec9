package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Reporter receives replay progress. Implementations must not block.
type Reporter interface {
	// Sent records one successfully sent packet.
	Sent()
	// Failed records one packet whose send failed.
	Failed()
	// Finish ends the report.
	Finish()
}

// Nop is a Reporter that does nothing.
type Nop struct{}

func (Nop) Sent()   {}
func (Nop) Failed() {}
func (Nop) Finish() {}

const barWidth = 40

// ProgressBar renders packets handled out of a known total
type ProgressBar struct {
	total       int64
	current     int64
	failed      int64
	startTime   time.Time
	lastUpdate  time.Time
	throttle    time.Duration
	output      io.Writer
	enabled     bool
	description string
}

// NewProgressBar creates a new progress bar writing to stderr
func NewProgressBar(total int64, description string) *ProgressBar {
	now := time.Now()
	return &ProgressBar{
		total:       total,
		startTime:   now,
		lastUpdate:  now,
		throttle:    100 * time.Millisecond,
		output:      os.Stderr, // stderr so it doesn't interfere with stdout
		enabled:     true,
		description: description,
	}
}

// SetOutput redirects rendering to w.
func (p *ProgressBar) SetOutput(w io.Writer) {
	p.output = w
}

// Disable disables the progress bar
func (p *ProgressBar) Disable() {
	p.enabled = false
}

// Enable enables the progress bar
func (p *ProgressBar) Enable() {
	p.enabled = true
}

// Sent advances the bar by one sent packet
func (p *ProgressBar) Sent() {
	p.current++
	p.render()
}

// Failed advances the bar by one failed packet
func (p *ProgressBar) Failed() {
	p.current++
	p.failed++
	p.render()
}

// render renders the progress bar
func (p *ProgressBar) render() {
	if !p.enabled {
		return
	}

	// Throttle updates to avoid too much output
	now := time.Now()
	if now.Sub(p.lastUpdate) < p.throttle && p.current < p.total {
		return
	}
	p.lastUpdate = now

	var percent float64
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total) * 100
	}

	elapsed := time.Since(p.startTime)

	var eta time.Duration
	if p.current > 0 && p.total > 0 {
		rate := float64(p.current) / elapsed.Seconds()
		if rate > 0 {
			remaining := float64(p.total-p.current) / rate
			eta = time.Duration(remaining * float64(time.Second))
		}
	}

	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	var sb strings.Builder
	sb.WriteString("\r")
	if p.description != "" {
		sb.WriteString(p.description + " ")
	}
	fmt.Fprintf(&sb, "[%s] %d/%d (%.1f%%) | Elapsed: %s", bar, p.current, p.total, percent, formatDuration(elapsed))
	if p.failed > 0 {
		fmt.Fprintf(&sb, " | Failed: %d", p.failed)
	}
	if eta > 0 && p.current < p.total {
		fmt.Fprintf(&sb, " | ETA: %s", formatDuration(eta))
	}

	fmt.Fprint(p.output, sb.String())
}

// Finish renders the final state and ends the line
func (p *ProgressBar) Finish() {
	if !p.enabled {
		return
	}

	p.lastUpdate = time.Time{}
	p.render()
	fmt.Fprint(p.output, "\n")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
