package pcap

// Hex dump utilities for packet analysis

import (
	"fmt"
	"strings"
)

// HexDump creates a hex dump of packet data
func HexDump(data []byte, width int) string {
	if width <= 0 {
		width = 16
	}

	var sb strings.Builder
	for i := 0; i < len(data); i += width {
		// Offset
		sb.WriteString(fmt.Sprintf("%04x: ", i))

		// Hex bytes
		for j := 0; j < width; j++ {
			if i+j < len(data) {
				sb.WriteString(fmt.Sprintf("%02x ", data[i+j]))
			} else {
				sb.WriteString("   ")
			}
		}

		// ASCII representation
		sb.WriteString(" |")
		for j := 0; j < width && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b < 127 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}

// Region labels a byte range [Start, End) of a payload.
type Region struct {
	Label string
	Start int
	End   int
}

// AnnotatedHexDump dumps each region under its label, clipped to the data
// length. Bytes after the last region are dumped as "Remainder".
func AnnotatedHexDump(data []byte, regions []Region) string {
	var sb strings.Builder
	covered := 0
	for _, r := range regions {
		start, end := clip(r.Start, len(data)), clip(r.End, len(data))
		if start >= end {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s [%d:%d]:\n", r.Label, start, end))
		sb.WriteString(HexDump(data[start:end], 16))
		if end > covered {
			covered = end
		}
	}
	if covered < len(data) {
		sb.WriteString(fmt.Sprintf("Remainder [%d:%d]:\n", covered, len(data)))
		sb.WriteString(HexDump(data[covered:], 16))
	}
	return sb.String()
}

func clip(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
