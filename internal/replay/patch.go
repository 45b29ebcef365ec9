package replay

import (
	"fmt"

	"github.com/tturner/udpreplay/internal/capture"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

// PatchFirst returns records with the session token written into bytes
// [2:6) of the first payload. The first payload is copied; the input slice
// and every other record are shared unchanged. An empty input is returned
// as is.
func PatchFirst(records []capture.Record, token Token) ([]capture.Record, error) {
	if len(records) == 0 {
		return records, nil
	}
	first := records[0]
	if len(first.Payload) < PatchEnd {
		return nil, replayerrors.New(replayerrors.KindInvalidPayload,
			fmt.Sprintf("patch capture packet #%d", first.Index+1),
			fmt.Errorf("payload is %d bytes, need at least %d", len(first.Payload), PatchEnd))
	}

	payload := make([]byte, len(first.Payload))
	copy(payload, first.Payload)
	copy(payload[PatchOffset:PatchEnd], token[:])

	out := make([]capture.Record, len(records))
	copy(out, records)
	out[0].Payload = payload
	return out, nil
}
