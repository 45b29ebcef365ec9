package replay

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/tturner/udpreplay/internal/capture"
)

var baseTime = time.Unix(1700000000, 0)

func record(index int, offset time.Duration, payload ...byte) capture.Record {
	return capture.Record{
		Index:     index,
		Timestamp: baseTime.Add(offset),
		Kind:      capture.KindUDP,
		SrcAddr:   netip.MustParseAddr("10.0.0.9"),
		DstAddr:   netip.MustParseAddr("10.0.0.1"),
		SrcPort:   40000,
		DstPort:   5000,
		Payload:   payload,
	}
}

type sentPacket struct {
	payload []byte
	to      netip.AddrPort
	at      time.Time
}

// fakeConn serves one canned handshake and records writes.
type fakeConn struct {
	mu        sync.Mutex
	handshake []byte
	from      netip.AddrPort
	reads     int
	sent      []sentPacket
	failAt    map[int]error
	writes    int
	closed    bool
	closeErr  error
	localAddr net.Addr
}

func (c *fakeConn) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.reads > 1 {
		return 0, netip.AddrPort{}, fmt.Errorf("fakeConn: unexpected second read")
	}
	n := copy(b, c.handshake)
	return n, c.from, nil
}

func (c *fakeConn) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.writes
	c.writes++
	if err, ok := c.failAt[idx]; ok {
		return 0, err
	}
	c.sent = append(c.sent, sentPacket{payload: append([]byte(nil), b...), to: addr, at: time.Now()})
	return len(b), nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) LocalAddr() net.Addr {
	if c.localAddr != nil {
		return c.localAddr
	}
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) packets() []sentPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentPacket(nil), c.sent...)
}

// recordingSleeper captures requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

// countingReporter tallies progress calls.
type countingReporter struct {
	sent     int
	failed   int
	finished int
}

func (r *countingReporter) Sent()   { r.sent++ }
func (r *countingReporter) Failed() { r.failed++ }
func (r *countingReporter) Finish() { r.finished++ }
