package report

import (
	"time"

	"github.com/tturner/udpreplay/internal/metrics"
	"github.com/tturner/udpreplay/internal/replay"
)

// ReplayReport is the machine-readable outcome of one replay run.
type ReplayReport struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"udpreplay_version"`
	Commit      string `json:"udpreplay_commit,omitempty"`

	Pcap      string `json:"pcap"`
	OldDest   string `json:"old_dest"`
	NewSource string `json:"new_src"`
	Peer      string `json:"peer,omitempty"`
	Token     string `json:"session_token,omitempty"`

	CaptureTotal int     `json:"capture_total"`
	Matched      int     `json:"matched"`
	Replayable   int     `json:"replayable"`
	Sent         int     `json:"sent"`
	Failed       int     `json:"failed"`
	Bytes        int     `json:"bytes"`
	Speed        float64 `json:"speed"`
	ElapsedMs    int64   `json:"elapsed_ms"`
	SleptMs      int64   `json:"slept_ms"`

	Timing *metrics.Summary `json:"timing,omitempty"`

	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// BuildInfo identifies the binary that produced a report.
type BuildInfo struct {
	Version string
	Commit  string
}

// FromResult assembles a report. res may be nil when the run failed before
// producing one.
func FromResult(build BuildInfo, opts replay.Options, res *replay.Result, runErr error) ReplayReport {
	rep := ReplayReport{
		GeneratedAt: FormatTimestamp(time.Now()),
		Version:     build.Version,
		Commit:      build.Commit,
		Pcap:        opts.PcapPath,
		OldDest:     opts.OldDest.String(),
		NewSource:   opts.NewSource.String(),
		Speed:       opts.Speed,
		State:       replay.StateFailed.String(),
	}
	if res != nil {
		rep.CaptureTotal = res.CaptureTotal
		rep.Matched = res.Matched
		rep.Replayable = res.Replayable
		rep.Sent = res.Stats.Sent
		rep.Failed = res.Stats.Failed
		rep.Bytes = res.Stats.Bytes
		rep.ElapsedMs = res.Stats.Elapsed().Milliseconds()
		rep.SleptMs = res.Stats.Slept.Milliseconds()
		rep.State = res.State.String()
		if res.Negotiated {
			rep.Peer = res.Peer.String()
			rep.Token = res.Token.String()
		}
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	return rep
}
