// ABOUTME: High-level Player API: wires a Supervisor to real collaborators behind a small surface
// ABOUTME: Connect/Close/Status/Stats/HTTPHandler; volume and mute follow server commands only
package sendspin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sendspin/sendspin-player-go/internal/artwork"
	"github.com/sendspin/sendspin-player-go/internal/clientid"
	"github.com/sendspin/sendspin-player-go/internal/decode"
	"github.com/sendspin/sendspin-player-go/internal/discovery"
	"github.com/sendspin/sendspin-player-go/internal/sink"
	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

// SinkMode selects which audio sink a Player uses.
type SinkMode string

const (
	// SinkLocal plays audio on the host's local output device via oto.
	SinkLocal SinkMode = "local"
	// SinkHTTPStream exposes a chunked HTTP endpoint a media player can open.
	SinkHTTPStream SinkMode = "http"
)

// PlayerConfig configures a Player.
type PlayerConfig struct {
	// ServerAddr is a literal "host:port". Empty triggers mDNS discovery.
	ServerAddr string

	// PlayerName is the display name advertised to the server and over mDNS.
	PlayerName string

	// Volume is the initial volume (0-100, default 100).
	Volume int

	// Muted is the initial mute state.
	Muted bool

	// BufferMs is the target jitter buffer depth in milliseconds (default 11000).
	BufferMs int

	// DiscoveryTimeoutMs bounds how long to browse for a server when
	// ServerAddr is empty (default 10000).
	DiscoveryTimeoutMs int

	// AdvertisePort is the port this player announces itself on via mDNS
	// (default 8927).
	AdvertisePort int

	// Sink selects the audio output mode (default SinkLocal).
	Sink SinkMode

	// HTTPStreamAddr is the listen address used when Sink is SinkHTTPStream
	// (e.g. ":8928"). Required in that mode.
	HTTPStreamAddr string

	// OnMetadata is called whenever track metadata changes, including a
	// second call once artwork has resolved to a local path.
	OnMetadata func(Metadata)

	// OnStateChange is called whenever playback or connection state changes.
	OnStateChange func(PlayerState)

	// OnError is called for non-fatal errors surfaced during playback.
	OnError func(error)
}

// Metadata is a flattened view of the server's metadata state.
type Metadata struct {
	Title            string
	Artist           string
	AlbumArtist      string
	Album            string
	ArtworkURL       string
	ArtworkLocalPath string
	Track            int
	Year             int
	TrackProgress    int
	TrackDuration    int
}

// PlayerState is a snapshot of the player's current condition.
type PlayerState struct {
	State      string // "idle", "playing", "paused", "stopped"
	Volume     int
	Muted      bool
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Connected  bool
}

// Stats reports playback counters for the active stream.
type Stats struct {
	Received    int
	Played      int
	Dropped     int
	QueueLen    int
	IsBuffering bool
	Active      bool
}

// Player is the high-level Sendspin player endpoint.
type Player struct {
	cfg PlayerConfig
	sup *supervisor.Supervisor

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state PlayerState

	httpSink *sink.HTTPStreamSink
}

// NewPlayer builds a Player wired to real discovery, decoder, sink, and
// artwork collaborators. It does not connect until Connect is called.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.Volume == 0 {
		cfg.Volume = 100
	}
	if cfg.BufferMs == 0 {
		cfg.BufferMs = 11000
	}
	if cfg.DiscoveryTimeoutMs == 0 {
		cfg.DiscoveryTimeoutMs = 10000
	}
	if cfg.AdvertisePort == 0 {
		cfg.AdvertisePort = 8927
	}
	if cfg.Sink == "" {
		cfg.Sink = SinkLocal
	}
	if cfg.Sink == SinkHTTPStream && cfg.HTTPStreamAddr == "" {
		return nil, fmt.Errorf("sendspin: HTTPStreamAddr required when Sink is SinkHTTPStream")
	}

	persistentID, err := clientid.Load()
	if err != nil {
		return nil, fmt.Errorf("sendspin: load client id: %w", err)
	}

	supCfg := supervisor.Config{
		ServerAddr:         cfg.ServerAddr,
		PlayerName:         cfg.PlayerName,
		BufferMs:           cfg.BufferMs,
		InitialVolume:      cfg.Volume,
		InitialMuted:       cfg.Muted,
		DiscoveryTimeoutMs: cfg.DiscoveryTimeoutMs,
		AdvertisePort:      cfg.AdvertisePort,
		PersistentClientID: persistentID,
	}

	var audioSink supervisor.Sink
	var httpSink *sink.HTTPStreamSink
	switch cfg.Sink {
	case SinkHTTPStream:
		httpSink = sink.NewHTTPStreamSink()
		audioSink = httpSink
	default:
		audioSink = sink.NewOtoSink(cfg.Volume, cfg.Muted)
	}

	disc := discovery.NewManager(cfg.PlayerName)

	downloader, err := artwork.NewDownloader()
	if err != nil {
		return nil, fmt.Errorf("sendspin: artwork downloader: %w", err)
	}

	p := &Player{
		cfg:      cfg,
		httpSink: httpSink,
		state: PlayerState{
			State:  "idle",
			Volume: cfg.Volume,
			Muted:  cfg.Muted,
		},
	}

	sup := supervisor.New(supCfg, p, disc, decode.NewAuto, audioSink)
	sup.SetArtworkResolver(downloader)
	p.sup = sup

	return p, nil
}

// Connect starts the Supervisor's run loop in the background, reconnecting
// indefinitely until Close is called.
func (p *Player) Connect() error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	go func() {
		if err := p.sup.Run(p.ctx); err != nil {
			p.notifyError(fmt.Errorf("sendspin: run: %w", err))
		}
	}()
	return nil
}

// HTTPHandler returns the chunked-audio HTTP handler when Sink is
// SinkHTTPStream, or nil otherwise.
func (p *Player) HTTPHandler() http.Handler {
	if p.httpSink == nil {
		return nil
	}
	return p.httpSink.Handler()
}

// Stats returns the active stream's buffer counters, or Active=false if
// no stream is currently playing.
func (p *Player) Stats() Stats {
	st, ok := p.sup.Stats()
	if !ok {
		return Stats{}
	}
	return Stats{
		Received:    st.Received,
		Played:      st.Played,
		Dropped:     st.Dropped,
		QueueLen:    st.QueueLen,
		IsBuffering: st.IsBuffering,
		Active:      true,
	}
}

// Close stops the Supervisor and releases resources.
func (p *Player) Close() error {
	if p.sup != nil {
		p.sup.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Status returns the current player state snapshot.
func (p *Player) Status() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setState(mutate func(*PlayerState)) {
	p.mu.Lock()
	mutate(&p.state)
	state := p.state
	p.mu.Unlock()
	if p.cfg.OnStateChange != nil {
		p.cfg.OnStateChange(state)
	}
}

func (p *Player) notifyError(err error) {
	if p.cfg.OnError != nil {
		p.cfg.OnError(err)
	}
}

// --- supervisor.Observer ---

func (p *Player) OnStreamStart(format supervisor.Format) {
	p.setState(func(s *PlayerState) {
		s.Codec = format.Codec
		s.SampleRate = format.SampleRate
		s.Channels = format.Channels
		s.BitDepth = format.BitDepth
		s.State = "playing"
	})
}

func (p *Player) OnStreamEnd() {
	p.setState(func(s *PlayerState) { s.State = "idle" })
}

func (p *Player) OnStreamClear() {}

func (p *Player) OnAudioChunk(pcm []int32, format supervisor.Format) {}

func (p *Player) OnMetadata(meta supervisor.Metadata) {
	if p.cfg.OnMetadata == nil {
		return
	}
	p.cfg.OnMetadata(metadataFromSupervisor(meta))
}

func (p *Player) OnPlaybackStateChange(state supervisor.PlaybackState) {
	p.setState(func(s *PlayerState) { s.State = string(state) })
}

func (p *Player) OnConnectionStateChange(connected bool) {
	p.setState(func(s *PlayerState) { s.Connected = connected })
}

func metadataFromSupervisor(m supervisor.Metadata) Metadata {
	out := Metadata{}
	if m.Title != nil {
		out.Title = *m.Title
	}
	if m.Artist != nil {
		out.Artist = *m.Artist
	}
	if m.AlbumArtist != nil {
		out.AlbumArtist = *m.AlbumArtist
	}
	if m.Album != nil {
		out.Album = *m.Album
	}
	if m.ArtworkURL != nil {
		out.ArtworkURL = *m.ArtworkURL
	}
	if m.ArtworkLocalPath != nil {
		out.ArtworkLocalPath = *m.ArtworkLocalPath
	}
	if m.Track != nil {
		out.Track = *m.Track
	}
	if m.Year != nil {
		out.Year = *m.Year
	}
	if m.TrackProgress != nil {
		out.TrackProgress = *m.TrackProgress
	}
	if m.TrackDuration != nil {
		out.TrackDuration = *m.TrackDuration
	}
	return out
}
