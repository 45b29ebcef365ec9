// Package replay negotiates a session with a live peer and replays captured
// UDP payloads toward it with the original pacing.
package replay

import (
	"encoding/hex"
	"fmt"

	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// Fixed offsets of the peer protocol. The engine treats payloads as opaque
// apart from these ranges:
//
//	handshake datagram: [0:6) header, [6:10) session token, [10:) ignored
//	first replayed payload: [0:2) header, [2:6) session token, [6:) body
const (
	HandshakeTokenOffset = 6
	TokenLen             = 4
	HandshakeMinLen      = HandshakeTokenOffset + TokenLen

	PatchOffset = 2
	PatchEnd    = PatchOffset + TokenLen
)

// MaxDatagram is the receive buffer size for the handshake.
const MaxDatagram = 65535

// Token is the opaque session identifier learned during negotiation.
type Token [TokenLen]byte

func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// TokenFromHandshake extracts the session token from a handshake datagram.
func TokenFromHandshake(datagram []byte) (Token, error) {
	var tok Token
	if len(datagram) < HandshakeMinLen {
		return tok, replayerrors.New(replayerrors.KindMalformedHandshake, "extract session token",
			fmt.Errorf("datagram is %d bytes, need at least %d", len(datagram), HandshakeMinLen))
	}
	copy(tok[:], datagram[HandshakeTokenOffset:HandshakeMinLen])
	return tok, nil
}
