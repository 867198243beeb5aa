// ABOUTME: Opus decoder wrapping gopkg.in/hraban/opus.v2
package decode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// Opus decodes Opus frames into int32 samples (always 16-bit internally).
type Opus struct {
	decoder  *opus.Decoder
	channels int
}

func NewOpus() *Opus {
	return &Opus{}
}

func (d *Opus) Initialize(format supervisor.Format) error {
	if format.Codec != "opus" {
		return fmt.Errorf("decode: invalid codec %q for Opus decoder", format.Codec)
	}
	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return fmt.Errorf("decode: creating opus decoder: %w", err)
	}
	d.decoder = dec
	d.channels = format.Channels
	return nil
}

func (d *Opus) Decode(data []byte) ([]int32, error) {
	pcm16 := make([]int16, 5760*d.channels) // max Opus frame size
	n, err := d.decoder.Decode(data, pcm16)
	if err != nil {
		return nil, fmt.Errorf("decode: opus decode: %w", err)
	}

	count := n * d.channels
	samples := make([]int32, count)
	for i := 0; i < count; i++ {
		samples[i] = SampleFromInt16(pcm16[i])
	}
	return samples, nil
}

func (d *Opus) Cleanup() error { return nil }
