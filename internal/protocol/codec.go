// ABOUTME: Binary frame encode/decode for the Sendspin wire protocol
// ABOUTME: Typed kind byte + big-endian timestamp header, per the audio chunk format
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Binary frame kinds. Only AudioChunk carries meaningful payload for a
// player; Auxiliary frames are accepted, logged, and discarded.
const (
	KindAudioChunk byte = 0x04
	KindAuxiliary  byte = 0x08
)

// ErrMalformedFrame is returned when an audio chunk frame is shorter than
// the fixed 9-byte header.
var ErrMalformedFrame = errors.New("protocol: malformed binary frame")

// BinaryFrame is a decoded binary message: a kind byte, a big-endian
// server-microsecond timestamp (meaningful only for AudioChunk), and the
// remaining payload bytes.
type BinaryFrame struct {
	Kind      byte
	Timestamp int64 // server clock, microseconds; zero for non-audio kinds
	Payload   []byte
}

// DecodeBinaryFrame parses a raw WebSocket binary message. An AudioChunk
// frame shorter than 9 bytes is rejected with ErrMalformedFrame without
// touching the connection; the caller decides what that means for the
// socket. Unknown kinds are returned as-is so the caller can log and
// discard them per spec.
func DecodeBinaryFrame(data []byte) (BinaryFrame, error) {
	if len(data) < 1 {
		return BinaryFrame{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	kind := data[0]
	switch kind {
	case KindAudioChunk:
		if len(data) < 9 {
			return BinaryFrame{}, fmt.Errorf("%w: audio chunk too short (%d bytes)", ErrMalformedFrame, len(data))
		}
		timestamp := int64(binary.BigEndian.Uint64(data[1:9]))
		return BinaryFrame{Kind: kind, Timestamp: timestamp, Payload: data[9:]}, nil
	default:
		// Auxiliary or unrecognized kind: no timestamp header is assumed,
		// the remainder of the frame is carried as opaque payload for the
		// caller to log and drop.
		var payload []byte
		if len(data) > 1 {
			payload = data[1:]
		}
		return BinaryFrame{Kind: kind, Payload: payload}, nil
	}
}

// EncodeAudioChunk builds a binary audio chunk frame: kind byte 0x04,
// followed by the 8-byte big-endian server timestamp, followed by the
// encoded audio payload.
func EncodeAudioChunk(timestampMicros int64, payload []byte) []byte {
	frame := make([]byte, 9+len(payload))
	frame[0] = KindAudioChunk
	binary.BigEndian.PutUint64(frame[1:9], uint64(timestampMicros))
	copy(frame[9:], payload)
	return frame
}
