package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tturner/udpreplay/internal/capture"
	"github.com/tturner/udpreplay/internal/endpoint"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
	"github.com/tturner/udpreplay/internal/pcap"
	"github.com/tturner/udpreplay/internal/replay"
	"github.com/tturner/udpreplay/internal/report"
)

type InspectOptions struct {
	// Pcap is a capture file or a directory of captures.
	Pcap    string
	OldDest string
	JSON    bool
	Stdout  io.Writer
}

// RunInspect summarises captures without touching the network. A directory
// yields one summary per capture; with JSON they are emitted as an array.
func RunInspect(ctx context.Context, opts InspectOptions) error {
	var target *endpoint.Endpoint
	if opts.OldDest != "" {
		ep, err := endpoint.ParseWithResolver(ctx, opts.OldDest, net.DefaultResolver)
		if err != nil {
			return err
		}
		target = &ep
	}

	files, err := pcap.CollectCaptureFiles(opts.Pcap)
	if err != nil {
		return replayerrors.New(replayerrors.KindCaptureLoad, "find captures", err)
	}
	if len(files) == 0 {
		return replayerrors.Newf(replayerrors.KindCaptureLoad, "find captures", "no .pcap or .pcapng files under %s", opts.Pcap)
	}

	summaries := make([]*pcap.CaptureSummary, 0, len(files))
	for _, file := range files {
		records, err := capture.ReadFile(file)
		if err != nil {
			return err
		}
		summaries = append(summaries, pcap.Summarize(file, records, target))
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if opts.JSON {
		if len(files) == 1 && files[0] == opts.Pcap {
			return report.WriteJSON(out, summaries[0])
		}
		return report.WriteJSON(out, summaries)
	}
	for i, summary := range summaries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		report.WriteCaptureSummary(out, summary, func(n int) bool { return n >= replay.PatchEnd })
	}
	return nil
}
