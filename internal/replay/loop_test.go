package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/tturner/udpreplay/internal/capture"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
	"github.com/tturner/udpreplay/internal/metrics"
)

var testPeer = netip.MustParseAddrPort("192.0.2.7:9000")

func TestDelay(t *testing.T) {
	tests := []struct {
		name  string
		gap   time.Duration
		speed float64
		want  time.Duration
	}{
		{"forward", 50 * time.Millisecond, 1, 50 * time.Millisecond},
		{"duplicate", 0, 1, 0},
		{"backwards", -20 * time.Millisecond, 1, 0},
		{"double speed", 50 * time.Millisecond, 2, 25 * time.Millisecond},
		{"half speed", 50 * time.Millisecond, 0.5, 100 * time.Millisecond},
		{"unpaced", 50 * time.Millisecond, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(baseTime, baseTime.Add(tt.gap), tt.speed); got != tt.want {
				t.Errorf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoopRunPacing(t *testing.T) {
	records := []capture.Record{
		record(0, 0, 1),
		record(1, 40*time.Millisecond, 2),
		record(2, 40*time.Millisecond, 3),
		record(3, 100*time.Millisecond, 4),
		record(4, 70*time.Millisecond, 5),
		record(5, 90*time.Millisecond, 6),
	}
	conn := &fakeConn{}
	sleeper := &recordingSleeper{}
	reporter := &countingReporter{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1, Sleep: sleeper.Sleep, Progress: reporter}

	stats, err := loop.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Duplicate and backwards timestamps skip the sleep; the clock still
	// moves to the earlier timestamp so the last gap is 70ms -> 90ms.
	want := []time.Duration{40 * time.Millisecond, 60 * time.Millisecond, 20 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, sleeper.delays[i], want[i])
		}
		if sleeper.delays[i] < 0 {
			t.Errorf("negative delay %v", sleeper.delays[i])
		}
	}

	sent := conn.packets()
	if len(sent) != len(records) {
		t.Fatalf("sent %d packets, want %d", len(sent), len(records))
	}
	for i, pkt := range sent {
		if !bytes.Equal(pkt.payload, records[i].Payload) {
			t.Errorf("packet %d payload = %x, want %x", i, pkt.payload, records[i].Payload)
		}
		if pkt.to != testPeer {
			t.Errorf("packet %d sent to %s", i, pkt.to)
		}
	}
	if stats.Sent != 6 || stats.Failed != 0 || stats.Total != 6 || stats.Bytes != 6 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Slept != 120*time.Millisecond {
		t.Errorf("Slept = %v, want 120ms", stats.Slept)
	}
	if reporter.sent != 6 || reporter.finished != 1 {
		t.Errorf("reporter = %+v", reporter)
	}
}

func TestLoopRunRealTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	records := []capture.Record{
		record(0, 0, 1),
		record(1, 60*time.Millisecond, 2),
		record(2, 90*time.Millisecond, 3),
		record(3, 50*time.Millisecond, 4),
	}
	conn := &fakeConn{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1}

	if _, err := loop.Run(context.Background(), records); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	sent := conn.packets()
	if len(sent) != 4 {
		t.Fatalf("sent %d packets", len(sent))
	}

	const tolerance = 40 * time.Millisecond
	want := []time.Duration{60 * time.Millisecond, 30 * time.Millisecond, 0}
	for i, w := range want {
		got := sent[i+1].at.Sub(sent[i].at)
		if got < w-time.Millisecond || got > w+tolerance {
			t.Errorf("gap %d = %v, want %v (+%v)", i, got, w, tolerance)
		}
	}
}

func TestLoopRunEmpty(t *testing.T) {
	conn := &fakeConn{}
	reporter := &countingReporter{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1, Progress: reporter}

	stats, err := loop.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if stats.Sent != 0 || conn.writes != 0 {
		t.Fatalf("empty run sent packets: stats=%+v writes=%d", stats, conn.writes)
	}
	if reporter.finished != 0 {
		t.Errorf("empty run should not touch progress")
	}
}

func TestLoopRunAbortsOnSendError(t *testing.T) {
	records := []capture.Record{record(0, 0, 1), record(1, 0, 2), record(2, 0, 3)}
	conn := &fakeConn{failAt: map[int]error{1: fmt.Errorf("connection refused")}}
	reporter := &countingReporter{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1, Progress: reporter}

	stats, err := loop.Run(context.Background(), records)
	if !errors.Is(err, replayerrors.ErrSend) {
		t.Fatalf("expected send error, got %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if conn.writes != 2 {
		t.Errorf("writes = %d, want 2", conn.writes)
	}
	if reporter.finished != 1 {
		t.Errorf("progress should be finished on abort")
	}
}

func TestLoopRunContinueOnError(t *testing.T) {
	records := []capture.Record{record(0, 0, 1), record(1, 0, 2), record(2, 0, 3)}
	conn := &fakeConn{failAt: map[int]error{0: fmt.Errorf("network is unreachable")}}
	reporter := &countingReporter{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1, ContinueOnError: true, Progress: reporter}

	stats, err := loop.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if stats.Sent != 2 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if reporter.sent != 2 || reporter.failed != 1 {
		t.Errorf("reporter = %+v", reporter)
	}
}

func TestLoopRunMetrics(t *testing.T) {
	records := []capture.Record{record(0, 0, 1, 2), record(3, 20*time.Millisecond, 3), record(7, 30*time.Millisecond, 4)}
	conn := &fakeConn{failAt: map[int]error{1: fmt.Errorf("connection refused")}}
	sink := metrics.NewSink()
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1, ContinueOnError: true, Sleep: (&recordingSleeper{}).Sleep, Metrics: sink}

	if _, err := loop.Run(context.Background(), records); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := sink.GetMetrics()
	if len(got) != 3 {
		t.Fatalf("recorded %d metrics, want 3", len(got))
	}
	wantDelay := []float64{0, 20, 10}
	wantCapture := []int{0, 3, 7}
	for i, m := range got {
		if m.Sequence != i+1 || m.CaptureIndex != wantCapture[i] || m.DelayMs != wantDelay[i] {
			t.Errorf("metric %d = %+v", i, m)
		}
	}
	if !got[0].Success || got[0].Bytes != 2 {
		t.Errorf("first metric = %+v", got[0])
	}
	if got[1].Success || got[1].Error != "connection refused" {
		t.Errorf("failed metric = %+v", got[1])
	}
	if summary := sink.GetSummary(); summary.Sent != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestLoopRunCancelDuringSleep(t *testing.T) {
	records := []capture.Record{record(0, 0, 1), record(1, time.Hour, 2)}
	conn := &fakeConn{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 1}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	stats, err := loop.Run(ctx, records)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancel did not interrupt sleep")
	}
	if stats.Sent != 1 {
		t.Errorf("Sent = %d, want 1", stats.Sent)
	}
}

func TestLoopRunUnpaced(t *testing.T) {
	records := []capture.Record{record(0, 0, 1), record(1, time.Hour, 2)}
	conn := &fakeConn{}
	sleeper := &recordingSleeper{}
	loop := &Loop{Conn: conn, Dest: testPeer, Speed: 0, Sleep: sleeper.Sleep}

	if _, err := loop.Run(context.Background(), records); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("unpaced run slept: %v", sleeper.delays)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled sleep = %v", err)
	}
}
