package protocol

import (
	"errors"
	"testing"
)

func TestDecodeBinaryFrameAudioChunk(t *testing.T) {
	frame := EncodeAudioChunk(1_000_000, []byte{0xAA, 0xBB, 0xCC})

	got, err := DecodeBinaryFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindAudioChunk {
		t.Errorf("Kind = %x, want %x", got.Kind, KindAudioChunk)
	}
	if got.Timestamp != 1_000_000 {
		t.Errorf("Timestamp = %d, want 1000000", got.Timestamp)
	}
	if len(got.Payload) != 3 || got.Payload[0] != 0xAA {
		t.Errorf("Payload = %v, want [170 187 204]", got.Payload)
	}
}

func TestDecodeBinaryFrameTooShortIsMalformed(t *testing.T) {
	// 8 bytes total: kind + 7 of the 8 timestamp bytes.
	short := EncodeAudioChunk(1, nil)[:8]

	_, err := DecodeBinaryFrame(short)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("err = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeBinaryFrameNineBytesAccepted(t *testing.T) {
	nine := EncodeAudioChunk(42, nil)
	if len(nine) != 9 {
		t.Fatalf("fixture len = %d, want 9", len(nine))
	}

	got, err := DecodeBinaryFrame(nine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Errorf("Payload = %v, want empty", got.Payload)
	}
}

func TestDecodeBinaryFrameAuxiliaryIsAcceptedAndUntimestamped(t *testing.T) {
	aux := []byte{KindAuxiliary, 1, 2, 3}

	got, err := DecodeBinaryFrame(aux)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindAuxiliary {
		t.Errorf("Kind = %x, want %x", got.Kind, KindAuxiliary)
	}
	if got.Timestamp != 0 {
		t.Errorf("Timestamp = %d, want 0", got.Timestamp)
	}
	if len(got.Payload) != 3 {
		t.Errorf("Payload = %v, want [1 2 3]", got.Payload)
	}
}
