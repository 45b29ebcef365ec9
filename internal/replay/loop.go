package replay

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/tturner/udpreplay/internal/capture"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
	"github.com/tturner/udpreplay/internal/logging"
	"github.com/tturner/udpreplay/internal/metrics"
	"github.com/tturner/udpreplay/internal/progress"
)

// Sender writes one datagram to addr.
type Sender interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay is the pause before sending a packet captured at next when the
// previous one was captured at prev. It is never negative. speed scales the
// gap; speed <= 0 disables pacing.
func Delay(prev, next time.Time, speed float64) time.Duration {
	gap := next.Sub(prev)
	if gap <= 0 || speed <= 0 {
		return 0
	}
	if speed == 1 {
		return gap
	}
	return time.Duration(float64(gap) / speed)
}

// Stats summarises one replay loop run.
type Stats struct {
	Total    int
	Sent     int
	Failed   int
	Bytes    int
	Slept    time.Duration
	Started  time.Time
	Finished time.Time
}

// Elapsed is the wall-clock duration of the run.
func (s Stats) Elapsed() time.Duration {
	if s.Started.IsZero() || s.Finished.Before(s.Started) {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Loop sends records in order to Dest, pacing them by capture timestamps.
type Loop struct {
	Conn Sender
	Dest netip.AddrPort
	// Speed divides every capture gap; <= 0 sends back to back.
	Speed float64
	// ContinueOnError logs and counts send failures instead of aborting.
	ContinueOnError bool
	Progress        progress.Reporter
	Logger          *logging.Logger
	Sleep           SleepFunc
	// Metrics, when set, receives one entry per attempted send.
	Metrics *metrics.Sink
}

// Run replays records. The first record is sent immediately; each later one
// waits max(ts - clock, 0) scaled by Speed, where clock is the timestamp of
// the previous record. An empty slice sends nothing.
func (l *Loop) Run(ctx context.Context, records []capture.Record) (Stats, error) {
	stats := Stats{Total: len(records), Started: time.Now()}
	if len(records) == 0 {
		stats.Finished = stats.Started
		return stats, nil
	}

	logger := l.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	reporter := l.Progress
	if reporter == nil {
		reporter = progress.Nop{}
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	defer reporter.Finish()

	clock := records[0].Timestamp
	scheduled := stats.Started
	for i, rec := range records {
		var delay time.Duration
		if i > 0 {
			delay = Delay(clock, rec.Timestamp, l.Speed)
			scheduled = scheduled.Add(delay)
			if delay > 0 {
				if err := sleep(ctx, delay); err != nil {
					stats.Finished = time.Now()
					return stats, fmt.Errorf("replay packet %d/%d: %w", i+1, stats.Total, err)
				}
				stats.Slept += delay
			}
			clock = rec.Timestamp
		}
		if err := ctx.Err(); err != nil {
			stats.Finished = time.Now()
			return stats, fmt.Errorf("replay packet %d/%d: %w", i+1, stats.Total, err)
		}

		sentAt := time.Now()
		n, err := l.Conn.WriteToUDPAddrPort(rec.Payload, l.Dest)
		if err == nil && n != len(rec.Payload) {
			err = io.ErrShortWrite
		}
		if l.Metrics != nil {
			m := metrics.Metric{
				Timestamp:    sentAt,
				Sequence:     i + 1,
				CaptureIndex: rec.Index,
				Bytes:        n,
				Success:      err == nil,
				DelayMs:      metrics.Millis(delay),
				LatenessMs:   metrics.Millis(sentAt.Sub(scheduled)),
			}
			if err != nil {
				m.Error = err.Error()
			}
			l.Metrics.Record(m)
		}
		if err != nil {
			sendErr := replayerrors.New(replayerrors.KindSend,
				fmt.Sprintf("send packet %d/%d (capture #%d) to %s", i+1, stats.Total, rec.Index+1, l.Dest), err)
			logger.Error("%v", sendErr)
			stats.Failed++
			reporter.Failed()
			if !l.ContinueOnError {
				stats.Finished = time.Now()
				return stats, sendErr
			}
			continue
		}

		stats.Sent++
		stats.Bytes += n
		reporter.Sent()
		logger.Debug("sent packet %d/%d (%d bytes, capture #%d)", i+1, stats.Total, n, rec.Index+1)
	}

	stats.Finished = time.Now()
	return stats, nil
}
