// ABOUTME: OtoSink: local audio output via ebitengine/oto, fed through a persistent pipe
// ABOUTME: Volume/mute are applied in software before the int32->int16 conversion oto requires
package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

const (
	max24Bit = 8388607
	min24Bit = -8388608

	// drainTimeout bounds Play's wait for oto to drain the pipe. Matches
	// decodeWithTimeout's shape in internal/supervisor/dispatch.go: push,
	// wait, and if the bound expires treat the push as successful-enough
	// rather than stalling the caller.
	drainTimeout = 100 * time.Millisecond
)

// OtoSink plays decoded PCM through the local audio device. oto supports
// only one context per process and only 16-bit output, so Start reuses an
// existing context when the format matches and logs a warning (continuing
// with the old format) rather than failing when it doesn't.
type OtoSink struct {
	mu sync.Mutex

	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	sampleRate int
	channels   int
	active     bool

	volume int
	muted  bool
}

// NewOtoSink returns a sink with volume/mute at the given defaults.
func NewOtoSink(initialVolume int, initialMuted bool) *OtoSink {
	return &OtoSink{volume: initialVolume, muted: initialMuted}
}

func (o *OtoSink) Start(format supervisor.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if format.BitDepth != 16 {
		log.Printf("sink: oto only supports 16-bit output, ignoring requested bit depth %d", format.BitDepth)
	}

	if o.otoCtx != nil && o.sampleRate == format.SampleRate && o.channels == format.Channels {
		o.active = true
		return nil
	}
	if o.otoCtx != nil {
		log.Printf("sink: format change %dHz/%dch -> %dHz/%dch but oto does not support reinitialization; continuing with existing context",
			o.sampleRate, o.channels, format.SampleRate, format.Channels)
		o.active = true
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("sink: oto context: %w", err)
	}
	<-ready

	o.otoCtx = ctx
	o.sampleRate = format.SampleRate
	o.channels = format.Channels

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.active = true

	return nil
}

// Play pushes samples to the device, bounded by drainTimeout. If oto's
// internal buffer hasn't drained enough to accept the write within that
// bound, the push is considered successful-enough and Play returns so the
// scheduler can move on to the next chunk rather than stalling the whole
// inbound pipeline on device backpressure; the write itself keeps running
// in the background and lands whenever the device catches up.
func (o *OtoSink) Play(samples []int32) error {
	o.mu.Lock()
	pipeWriter := o.pipeWriter
	volume, muted := o.volume, o.muted
	o.mu.Unlock()

	if pipeWriter == nil {
		return fmt.Errorf("sink: not started")
	}

	scaled := applyVolume(samples, volume, muted)
	out := make([]byte, len(scaled)*2)
	for i, s := range scaled {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s>>8)))
	}

	done := make(chan error, 1)
	go func() {
		_, err := pipeWriter.Write(out)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(drainTimeout):
		return nil
	}
}

func (o *OtoSink) ClearBuffer() error {
	// The pipe has no drop-in-place primitive; a seek discards buffered
	// audio implicitly because the scheduler re-enters buffering and
	// stops feeding new samples until it refills.
	return nil
}

func (o *OtoSink) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = false
	return nil
}

func (o *OtoSink) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// SetVolume sets 0-100 volume, clamped.
func (o *OtoSink) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// SetMuted sets the mute flag.
func (o *OtoSink) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := 0.0
	if !muted {
		multiplier = float64(volume) / 100.0
	}

	out := make([]int32, len(samples))
	for i, s := range samples {
		scaled := int64(float64(s) * multiplier)
		if scaled > max24Bit {
			scaled = max24Bit
		} else if scaled < min24Bit {
			scaled = min24Bit
		}
		out[i] = int32(scaled)
	}
	return out
}
