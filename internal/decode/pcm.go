// ABOUTME: PCM decoder: 24-bit little-endian samples pass through, 16-bit ones are scaled to 24-bit
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// PCM decodes raw little-endian PCM into int32 samples. Initialize is
// required before Decode since the bit depth determines how many bytes
// each sample occupies.
type PCM struct {
	bitDepth int
}

// NewPCM returns an uninitialized PCM decoder satisfying
// supervisor.Decoder.
func NewPCM() *PCM {
	return &PCM{}
}

func (d *PCM) Initialize(format supervisor.Format) error {
	if format.Codec != "pcm" {
		return fmt.Errorf("decode: invalid codec %q for PCM decoder", format.Codec)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return fmt.Errorf("decode: unsupported PCM bit depth %d (want 16 or 24)", format.BitDepth)
	}
	d.bitDepth = format.BitDepth
	return nil
}

func (d *PCM) Decode(data []byte) ([]int32, error) {
	if d.bitDepth == 24 {
		n := len(data) / 3
		samples := make([]int32, n)
		for i := 0; i < n; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = SampleFrom24Bit(b)
		}
		return samples, nil
	}
	n := len(data) / 2
	samples := make([]int32, n)
	for i := 0; i < n; i++ {
		samples[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples, nil
}

func (d *PCM) Cleanup() error { return nil }
