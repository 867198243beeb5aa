// ABOUTME: Auto dispatches to the right codec decoder once Initialize sees the stream's format
package decode

import (
	"fmt"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// Auto implements supervisor.Decoder by picking a concrete decoder based
// on the codec named in the first Initialize call, then forwarding Decode
// and Cleanup to it. One Auto is constructed per stream by the Supervisor
// via NewAuto, mirroring the codec switch the teacher's handleStreamStart
// performs inline.
type Auto struct {
	current supervisor.Decoder
}

// NewAuto returns a fresh, uninitialized Auto decoder.
func NewAuto() supervisor.Decoder {
	return &Auto{}
}

func (a *Auto) Initialize(format supervisor.Format) error {
	var d supervisor.Decoder
	switch format.Codec {
	case "pcm":
		d = NewPCM()
	case "opus":
		d = NewOpus()
	case "flac":
		d = NewFLAC()
	case "mp3":
		d = NewMP3()
	default:
		return fmt.Errorf("decode: unsupported codec %q", format.Codec)
	}
	if err := d.Initialize(format); err != nil {
		return err
	}
	a.current = d
	return nil
}

func (a *Auto) Decode(encoded []byte) ([]int32, error) {
	if a.current == nil {
		return nil, fmt.Errorf("decode: auto decoder not initialized")
	}
	return a.current.Decode(encoded)
}

func (a *Auto) Cleanup() error {
	if a.current == nil {
		return nil
	}
	return a.current.Cleanup()
}
