package replay

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/tturner/udpreplay/internal/endpoint"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// Conn is the bound UDP socket used for the handshake receive and all sends.
// *net.UDPConn satisfies it.
type Conn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// BindOptions tune the replay socket.
type BindOptions struct {
	ReuseAddr bool
}

// Bind opens a UDP socket on src.
func Bind(ctx context.Context, src endpoint.Endpoint, opts BindOptions) (*net.UDPConn, error) {
	op := fmt.Sprintf("bind %s", src)

	lc := net.ListenConfig{}
	if opts.ReuseAddr {
		lc.Control = reuseAddrControl
	}
	pc, err := lc.ListenPacket(ctx, src.Network(), src.String())
	if err != nil {
		return nil, replayerrors.New(replayerrors.KindBind, op, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, replayerrors.Newf(replayerrors.KindBind, op, "unexpected socket type %T", pc)
	}
	return conn, nil
}
