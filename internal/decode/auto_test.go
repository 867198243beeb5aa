package decode

import (
	"testing"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

func TestAutoDispatchesToPCM(t *testing.T) {
	a := NewAuto()
	if err := a.Initialize(supervisor.Format{Codec: "pcm", BitDepth: 16, Channels: 1, SampleRate: 48000}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	raw := []byte{0x00, 0x00, 0x01, 0x00}
	samples, err := a.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
}

func TestAutoRejectsUnsupportedCodec(t *testing.T) {
	a := NewAuto()
	if err := a.Initialize(supervisor.Format{Codec: "alac"}); err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestAutoDecodeBeforeInitializeFails(t *testing.T) {
	a := NewAuto()
	if _, err := a.Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding before Initialize")
	}
}

func TestAutoCleanupBeforeInitializeIsNoop(t *testing.T) {
	a := NewAuto()
	if err := a.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}
