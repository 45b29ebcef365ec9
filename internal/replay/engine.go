package replay

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/tturner/udpreplay/internal/capture"
	"github.com/tturner/udpreplay/internal/endpoint"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
	"github.com/tturner/udpreplay/internal/logging"
	"github.com/tturner/udpreplay/internal/metrics"
	"github.com/tturner/udpreplay/internal/pcap"
	"github.com/tturner/udpreplay/internal/progress"
)

// State is a phase of an engine run.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateFiltering
	StateAwaitingHandshake
	StatePatching
	StateReplaying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateFiltering:
		return "filtering"
	case StateAwaitingHandshake:
		return "awaiting-handshake"
	case StatePatching:
		return "patching"
	case StateReplaying:
		return "replaying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configure one replay run. Endpoints are already parsed.
type Options struct {
	PcapPath         string
	OldDest          endpoint.Endpoint
	NewSource        endpoint.Endpoint
	HandshakeTimeout time.Duration
	Speed            float64
	Limit            int
	ContinueOnError  bool
	ReuseAddr        bool
	ShowProgress     bool
}

// Result describes what a run did.
type Result struct {
	CaptureTotal int
	Matched      int
	Replayable   int
	Peer         netip.AddrPort
	Token        Token
	Negotiated   bool
	Stats        Stats
	State        State
}

// Engine drives load, filter, handshake, patch and replay in that order.
type Engine struct {
	opts   Options
	logger *logging.Logger
	out    io.Writer
	state  State
	sink   *metrics.Sink

	load        func(path string) ([]capture.Record, error)
	bind        func(ctx context.Context, src endpoint.Endpoint, opts BindOptions) (Conn, error)
	sleep       SleepFunc
	newProgress func(total int) progress.Reporter
	onState     func(State)
}

// NewEngine creates an engine. A nil logger discards log output.
func NewEngine(opts Options, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	e := &Engine{
		opts:   opts,
		logger: logger,
		out:    os.Stdout,
		load:   capture.ReadFile,
		bind: func(ctx context.Context, src endpoint.Endpoint, opts BindOptions) (Conn, error) {
			return Bind(ctx, src, opts)
		},
		sleep: Sleep,
	}
	e.newProgress = func(total int) progress.Reporter {
		if !e.opts.ShowProgress {
			return progress.Nop{}
		}
		return progress.NewProgressBar(int64(total), "Sending packets")
	}
	return e
}

// SetOutput sets where operator messages are printed. Defaults to stdout.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// SetMetrics records per-packet send metrics into sink.
func (e *Engine) SetMetrics(sink *metrics.Sink) {
	e.sink = sink
}

// State returns the current phase.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(s State) {
	e.logger.Verbose("engine: %s -> %s", e.state, s)
	e.state = s
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) fail(res *Result, err error) (*Result, error) {
	if replayerrors.IsCancelled(err) {
		e.logger.Info("%s aborted: %v", e.state, err)
	} else {
		e.logger.Error("%s failed: %v", e.state, err)
	}
	e.transition(StateFailed)
	res.State = e.state
	return res, err
}

// Run executes one replay. An empty filtered sequence ends the run
// successfully before any socket is opened.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	e.transition(StateLoading)
	records, err := e.load(e.opts.PcapPath)
	if err != nil {
		return e.fail(res, err)
	}
	res.CaptureTotal = len(records)
	e.logger.Verbose("loaded %d record(s) from %s", len(records), e.opts.PcapPath)

	e.transition(StateFiltering)
	filtered := pcap.FilterByDestination(records, e.opts.OldDest)
	res.Matched = len(filtered)
	filtered = pcap.Limit(filtered, e.opts.Limit)
	res.Replayable = len(filtered)
	e.logger.Info("%d of %d record(s) match %s, %d to replay", res.Matched, res.CaptureTotal, e.opts.OldDest, res.Replayable)

	if len(filtered) > 0 {
		e.logger.Verbose("first replayed record #%d was captured from %s", filtered[0].Index, filtered[0].Source())
	}

	if len(filtered) == 0 {
		fmt.Fprintln(e.out, "No packets to send")
		e.transition(StateDone)
		res.State = e.state
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return e.fail(res, err)
	}

	e.transition(StateAwaitingHandshake)
	conn, err := e.bind(ctx, e.opts.NewSource, BindOptions{ReuseAddr: e.opts.ReuseAddr})
	if err != nil {
		return e.fail(res, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.logger.Error("close socket: %v", cerr)
		}
	}()

	fmt.Fprintf(e.out, "Waiting for session handshake on %s\n", conn.LocalAddr())
	hs, err := Negotiate(ctx, conn, e.opts.HandshakeTimeout)
	if err != nil {
		return e.fail(res, err)
	}
	res.Peer = hs.Peer
	res.Token = hs.Token
	res.Negotiated = true
	e.logger.Info("handshake from %s, session token %s", hs.Peer, hs.Token)
	e.logger.LogHex("handshake datagram", hs.Raw)

	e.transition(StatePatching)
	patched, err := PatchFirst(filtered, hs.Token)
	if err != nil {
		return e.fail(res, err)
	}
	if e.logger.GetLevel() >= logging.LogLevelDebug {
		e.logger.Debug("patched first payload:\n%s", pcap.AnnotatedHexDump(patched[0].Payload, []pcap.Region{
			{Label: "Header", Start: 0, End: PatchOffset},
			{Label: "Session token", Start: PatchOffset, End: PatchEnd},
		}))
	}

	e.transition(StateReplaying)
	loop := &Loop{
		Conn:            conn,
		Dest:            hs.Peer,
		Speed:           e.opts.Speed,
		ContinueOnError: e.opts.ContinueOnError,
		Progress:        e.newProgress(len(patched)),
		Logger:          e.logger,
		Sleep:           e.sleep,
		Metrics:         e.sink,
	}
	stats, err := loop.Run(ctx, patched)
	res.Stats = stats
	if err != nil {
		return e.fail(res, err)
	}

	e.transition(StateDone)
	res.State = e.state
	fmt.Fprintf(e.out, "Replayed %d packet(s) to %s\n", stats.Sent, hs.Peer)
	if stats.Failed > 0 {
		fmt.Fprintf(e.out, "%d packet(s) failed to send\n", stats.Failed)
	}
	return res, nil
}
