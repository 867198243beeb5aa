// ABOUTME: MP3 decoder wrapping hajimehoshi/go-mp3, decoding one chunk's worth of frames per call
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// MP3 decodes MP3-encoded chunks. go-mp3's Decoder consumes a continuous
// stream, so each chunk is re-wrapped in its own decoder: MP3 frames are
// self-synchronizing, so decoding chunk-at-a-time works as long as each
// chunk boundary lands on a frame boundary, which the encoder guarantees.
type MP3 struct{}

func NewMP3() *MP3 {
	return &MP3{}
}

func (d *MP3) Initialize(format supervisor.Format) error {
	if format.Codec != "mp3" {
		return fmt.Errorf("decode: invalid codec %q for MP3 decoder", format.Codec)
	}
	return nil
}

func (d *MP3) Decode(data []byte) ([]int32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: mp3 decoder: %w", err)
	}

	var samples []int32
	buf := make([]byte, 8192)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			count := n / 2
			for i := 0; i < count; i++ {
				samples = append(samples, SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:]))))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: mp3 read: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return samples, nil
}

func (d *MP3) Cleanup() error { return nil }
