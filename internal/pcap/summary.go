package pcap

import (
	"sort"
	"time"

	"github.com/tturner/udpreplay/internal/capture"
	"github.com/tturner/udpreplay/internal/endpoint"
)

// FlowStats counts UDP traffic toward one destination.
type FlowStats struct {
	Destination string    `json:"destination"`
	Packets     int       `json:"packets"`
	Bytes       int       `json:"bytes"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
}

// CaptureSummary describes a loaded capture, optionally relative to the
// destination that would be replayed.
type CaptureSummary struct {
	Path         string      `json:"path"`
	Total        int         `json:"total"`
	UDP          int         `json:"udp"`
	Other        int         `json:"other"`
	First        time.Time   `json:"first"`
	Last         time.Time   `json:"last"`
	Destinations []FlowStats `json:"destinations"`

	Target       string        `json:"target,omitempty"`
	Matched      int           `json:"matched,omitempty"`
	MatchedBytes int           `json:"matched_bytes,omitempty"`
	ReplaySpan   time.Duration `json:"replay_span_ns,omitempty"`
	FirstPayload int           `json:"first_payload_len,omitempty"`
	OutOfOrder   int           `json:"out_of_order,omitempty"`
}

// Summarize builds a CaptureSummary. When target is non-nil the match
// statistics for that destination are filled in.
func Summarize(path string, records []capture.Record, target *endpoint.Endpoint) *CaptureSummary {
	summary := &CaptureSummary{Path: path, Total: len(records)}
	flows := map[string]*FlowStats{}

	for _, rec := range records {
		if summary.First.IsZero() || rec.Timestamp.Before(summary.First) {
			summary.First = rec.Timestamp
		}
		if rec.Timestamp.After(summary.Last) {
			summary.Last = rec.Timestamp
		}
		if rec.Kind != capture.KindUDP {
			summary.Other++
			continue
		}
		summary.UDP++
		key := rec.Destination().String()
		flow, ok := flows[key]
		if !ok {
			flow = &FlowStats{Destination: key, First: rec.Timestamp}
			flows[key] = flow
		}
		flow.Packets++
		flow.Bytes += len(rec.Payload)
		flow.Last = rec.Timestamp
	}

	for _, flow := range flows {
		summary.Destinations = append(summary.Destinations, *flow)
	}
	sort.Slice(summary.Destinations, func(i, j int) bool {
		a, b := summary.Destinations[i], summary.Destinations[j]
		if a.Packets != b.Packets {
			return a.Packets > b.Packets
		}
		return a.Destination < b.Destination
	})

	if target == nil {
		return summary
	}

	summary.Target = target.String()
	matched := FilterByDestination(records, *target)
	summary.Matched = len(matched)
	for i, rec := range matched {
		summary.MatchedBytes += len(rec.Payload)
		if i == 0 {
			continue
		}
		gap := rec.Timestamp.Sub(matched[i-1].Timestamp)
		if gap < 0 {
			summary.OutOfOrder++
			continue
		}
		summary.ReplaySpan += gap
	}
	if len(matched) > 0 {
		summary.FirstPayload = len(matched[0].Payload)
	}
	return summary
}
