// ABOUTME: FLAC decoder using mewkiz/flac's frame-level API on a per-chunk basis
// ABOUTME: Each binary chunk carries one encoded FLAC frame; stream info comes from the format descriptor
package decode

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// FLAC decodes individual FLAC frames against a StreamInfo built from the
// stream's format descriptor. Unlike flac.New/Stream.Next, which expect a
// full container (fLaC marker + metadata blocks), ParseFrame decodes one
// frame at a time against stream parameters the caller already knows -
// exactly the shape of a chunk arriving over the wire.
type FLAC struct {
	info *meta.StreamInfo
}

func NewFLAC() *FLAC {
	return &FLAC{}
}

func (d *FLAC) Initialize(format supervisor.Format) error {
	if format.Codec != "flac" {
		return fmt.Errorf("decode: invalid codec %q for FLAC decoder", format.Codec)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 || format.BitDepth <= 0 {
		return fmt.Errorf("decode: incomplete FLAC format descriptor")
	}
	d.info = &meta.StreamInfo{
		SampleRate:    uint32(format.SampleRate),
		NChannels:     uint8(format.Channels),
		BitsPerSample: uint8(format.BitDepth),
	}
	return nil
}

func (d *FLAC) Decode(data []byte) ([]int32, error) {
	if d.info == nil {
		return nil, fmt.Errorf("decode: flac decoder not initialized")
	}

	br := bitio.NewReader(bytes.NewReader(data))
	f, err := flac.ParseFrame(br, d.info)
	if err != nil {
		return nil, fmt.Errorf("decode: flac frame parse: %w", err)
	}

	channels := len(f.Subframes)
	if channels == 0 {
		return nil, nil
	}
	nSamples := len(f.Subframes[0].Samples)
	shift := uint(24 - d.info.BitsPerSample)

	out := make([]int32, nSamples*channels)
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = f.Subframes[ch].Samples[i] << shift
		}
	}
	return out, nil
}

func (d *FLAC) Cleanup() error { return nil }
