// ABOUTME: External collaborator contracts the Supervisor consumes: Discovery, Decoder, Sink
// ABOUTME: The Supervisor never implements these itself; pkg/sendspin.NewPlayer wires concrete ones in
package supervisor

import (
	"context"
	"time"
)

// Format describes a stream's audio encoding, echoed from stream/start.
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader string // base64, as received
}

// Discovery resolves the server address to dial. Discover returns
// ok=false, no error, on a clean timeout with nothing found (a None, not a
// failure); Advertise is fire-and-forget and its error is logged, not
// propagated.
type Discovery interface {
	Discover(ctx context.Context, timeout time.Duration) (addr string, ok bool, err error)
	Advertise(ctx context.Context, port int) error
}

// Decoder turns encoded chunks into PCM. The Supervisor applies a
// 1-second timeout around Decode; on timeout or error it logs and drops
// the chunk.
type Decoder interface {
	Initialize(format Format) error
	Decode(encoded []byte) (pcm []int32, err error)
	Cleanup() error
}

// Sink is the audio output collaborator.
type Sink interface {
	Start(format Format) error
	Play(pcm []int32) error
	ClearBuffer() error
	Stop() error
	IsActive() bool
}

// ArtworkResolver fetches album art referenced by Metadata.ArtworkURL and
// returns a local filesystem path. Optional: a Supervisor with no resolver
// set simply never populates Metadata.ArtworkLocalPath.
type ArtworkResolver interface {
	Resolve(ctx context.Context, url string) (localPath string, err error)
}

// Observer is the single host-facing callback surface, collapsing the
// source's dozen named callbacks into one capability set (§9 redesign:
// "callback-heavy configuration object").
type Observer interface {
	OnStreamStart(format Format)
	OnStreamEnd()
	OnStreamClear()
	OnAudioChunk(pcm []int32, format Format)
	OnMetadata(meta Metadata)
	OnPlaybackStateChange(state PlaybackState)
	OnConnectionStateChange(connected bool)
}

// PlaybackState mirrors the group/session playback-state field.
type PlaybackState string

const (
	PlaybackUnknown PlaybackState = ""
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackStopped PlaybackState = "stopped"
)

// Metadata is the local mirror of server/state's metadata object. Pointer
// fields are nil when the server left them unset ("unknown/unchanged").
type Metadata struct {
	Title         *string
	Artist        *string
	AlbumArtist   *string
	Album         *string
	ArtworkURL    *string
	// ArtworkLocalPath is filled in asynchronously by the artwork resolver,
	// if one is configured, after a second OnMetadata notification.
	ArtworkLocalPath *string
	Year             *int
	Track            *int
	TrackProgress    *int
	TrackDuration    *int
	PlaybackSpeed    *int
	Repeat           *string
	Shuffle          *bool
}
