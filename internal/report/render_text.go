package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/udpreplay/internal/netdetect"
	"github.com/tturner/udpreplay/internal/pcap"
)

const labelWidth = 18

type palette struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
}

// newPalette binds styles to w. Non-terminal writers get plain text.
func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		label: r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		value: r.NewStyle().Foreground(lipgloss.Color("#c0caf5")),
		good:  r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		bad:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#f7768e")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#565f89")),
	}
}

// key renders a label padded to labelWidth. Longer labels get one space.
func (p palette) key(label string) string {
	text := label + ":"
	pad := labelWidth - lipgloss.Width(text)
	if pad < 1 {
		pad = 1
	}
	return p.label.Render(text) + strings.Repeat(" ", pad)
}

func (p palette) row(b *strings.Builder, label string, value string) {
	b.WriteString("  ")
	b.WriteString(p.key(label))
	b.WriteString(p.value.Render(value))
	b.WriteString("\n")
}

// WriteReplaySummary prints the post-run summary.
func WriteReplaySummary(w io.Writer, rep ReplayReport) {
	p := newPalette(w)
	var b strings.Builder

	b.WriteString(p.title.Render("Replay Summary"))
	b.WriteString("\n")
	p.row(&b, "Capture", rep.Pcap)
	p.row(&b, "Old destination", rep.OldDest)
	p.row(&b, "New source", rep.NewSource)
	if rep.Peer != "" {
		p.row(&b, "Peer", rep.Peer)
		p.row(&b, "Session token", rep.Token)
	}
	p.row(&b, "Matched", fmt.Sprintf("%d of %d record(s)", rep.Matched, rep.CaptureTotal))
	if rep.Replayable != rep.Matched {
		p.row(&b, "Replayable", fmt.Sprintf("%d (limited)", rep.Replayable))
	}
	p.row(&b, "Sent", fmt.Sprintf("%d packet(s), %d byte(s)", rep.Sent, rep.Bytes))
	if rep.Failed > 0 {
		b.WriteString("  ")
		b.WriteString(p.key("Failed"))
		b.WriteString(p.bad.Render(fmt.Sprintf("%d packet(s)", rep.Failed)))
		b.WriteString("\n")
	}
	p.row(&b, "Elapsed", formatMillis(rep.ElapsedMs))
	if rep.Timing != nil && rep.Timing.Sent > 0 {
		p.row(&b, "Send lateness", fmt.Sprintf("p50 %.3f ms, p99 %.3f ms, max %.3f ms",
			rep.Timing.P50Lateness, rep.Timing.P99Lateness, rep.Timing.MaxLateness))
	}
	if rep.Speed != 1 {
		speed := fmt.Sprintf("x%g", rep.Speed)
		if rep.Speed <= 0 {
			speed = "unpaced"
		}
		p.row(&b, "Speed", speed)
	}

	b.WriteString("  ")
	b.WriteString(p.key("Result"))
	if rep.Error == "" {
		b.WriteString(p.good.Render(rep.State))
	} else {
		b.WriteString(p.bad.Render(rep.State))
	}
	b.WriteString("\n")

	fmt.Fprint(w, b.String())
}

// WriteCaptureSummary prints the inspect view of a capture.
func WriteCaptureSummary(w io.Writer, s *pcap.CaptureSummary, patchable func(payloadLen int) bool) {
	p := newPalette(w)
	var b strings.Builder

	b.WriteString(p.title.Render("Capture Summary"))
	b.WriteString("\n")
	p.row(&b, "File", s.Path)
	p.row(&b, "Records", fmt.Sprintf("%d (%d UDP, %d other)", s.Total, s.UDP, s.Other))
	if s.Total > 0 {
		p.row(&b, "Span", s.Last.Sub(s.First).Round(time.Microsecond).String())
	}

	if len(s.Destinations) > 0 {
		b.WriteString("\n")
		b.WriteString(p.title.Render("UDP Destinations"))
		b.WriteString("\n")
		for _, flow := range s.Destinations {
			p.row(&b, flow.Destination, fmt.Sprintf("%d packet(s), %d byte(s)", flow.Packets, flow.Bytes))
		}
	}

	if s.Target != "" {
		b.WriteString("\n")
		b.WriteString(p.title.Render("Replay Target " + s.Target))
		b.WriteString("\n")
		p.row(&b, "Matched", fmt.Sprintf("%d packet(s), %d byte(s)", s.Matched, s.MatchedBytes))
		if s.Matched > 0 {
			p.row(&b, "Replay duration", s.ReplaySpan.Round(time.Microsecond).String())
			head := p.good.Render("yes")
			if patchable != nil && !patchable(s.FirstPayload) {
				head = p.bad.Render("no")
			}
			b.WriteString("  ")
			b.WriteString(p.key("Patchable"))
			b.WriteString(head)
			b.WriteString(p.dim.Render(fmt.Sprintf(" (first payload %d byte(s))", s.FirstPayload)))
			b.WriteString("\n")
		}
		if s.OutOfOrder > 0 {
			p.row(&b, "Out of order", fmt.Sprintf("%d timestamp(s) go backwards, sent without delay", s.OutOfOrder))
		}
	}

	fmt.Fprint(w, b.String())
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

// WriteInterfaces prints local interfaces and their addresses.
func WriteInterfaces(w io.Writer, interfaces []netdetect.InterfaceInfo) {
	p := newPalette(w)
	var b strings.Builder

	b.WriteString(p.title.Render("Local Interfaces"))
	b.WriteString("\n")
	if len(interfaces) == 0 {
		b.WriteString(p.dim.Render("  none"))
		b.WriteString("\n")
	}
	for _, iface := range interfaces {
		b.WriteString("  ")
		b.WriteString(p.key(iface.Name))
		b.WriteString(p.value.Render(netdetect.GetInterfaceAddressString(iface)))
		switch {
		case !iface.IsUp:
			b.WriteString(p.dim.Render(" (down)"))
		case iface.IsLoopback:
			b.WriteString(p.dim.Render(" (loopback)"))
		}
		b.WriteString("\n")
	}

	fmt.Fprint(w, b.String())
}
