package replay

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// Handshake is what one inbound datagram tells us about the live session.
type Handshake struct {
	Peer  netip.AddrPort
	Token Token
	Raw   []byte
}

// Negotiate performs exactly one receive on conn. The sender becomes the
// replay destination and bytes [6:10) of the datagram the session token.
// A zero timeout waits until a datagram arrives or ctx is cancelled.
func Negotiate(ctx context.Context, conn Conn, timeout time.Duration) (Handshake, error) {
	const op = "negotiate"

	if err := ctx.Err(); err != nil {
		return Handshake{}, fmt.Errorf("%s: %w", op, err)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return Handshake{}, replayerrors.New(replayerrors.KindHandshake, op, err)
	}

	// Unblock the read when ctx is cancelled.
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Unix(1, 0))
		case <-stop:
		}
	}()

	buf := make([]byte, MaxDatagram)
	n, peer, readErr := conn.ReadFromUDPAddrPort(buf)
	close(stop)
	<-watcherDone
	_ = conn.SetReadDeadline(time.Time{})

	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Handshake{}, fmt.Errorf("%s: %w", op, ctxErr)
		}
		if errors.Is(readErr, os.ErrDeadlineExceeded) {
			return Handshake{}, replayerrors.New(replayerrors.KindHandshake, op,
				fmt.Errorf("no datagram within %s: %w", timeout, readErr))
		}
		return Handshake{}, replayerrors.New(replayerrors.KindHandshake, op, readErr)
	}

	raw := buf[:n:n]
	token, err := TokenFromHandshake(raw)
	if err != nil {
		return Handshake{}, err
	}
	return Handshake{
		Peer:  netip.AddrPortFrom(peer.Addr().Unmap(), peer.Port()),
		Token: token,
		Raw:   raw,
	}, nil
}
