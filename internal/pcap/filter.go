package pcap

import (
	"github.com/tturner/udpreplay/internal/capture"
	"github.com/tturner/udpreplay/internal/endpoint"
)

// FilterByDestination returns, in capture order, the UDP records addressed
// to dst. Non-UDP records are skipped. The input slice is not modified.
func FilterByDestination(records []capture.Record, dst endpoint.Endpoint) []capture.Record {
	var out []capture.Record
	for _, rec := range records {
		if rec.Kind != capture.KindUDP {
			continue
		}
		if !dst.Matches(rec.DstAddr, rec.DstPort) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Limit returns the first n records, or all of them when n <= 0.
func Limit(records []capture.Record, n int) []capture.Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
