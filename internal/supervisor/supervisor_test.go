package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/sendspin/sendspin-player-go/internal/protocol"
	"github.com/sendspin/sendspin-player-go/internal/session"
)

type fakeObserver struct {
	metadata      []Metadata
	playbackState []PlaybackState
	connState     []bool
	streamStarts  []Format
	streamEnds    int
	streamClears  int
	audioChunks   int
}

func (f *fakeObserver) OnStreamStart(format Format)             { f.streamStarts = append(f.streamStarts, format) }
func (f *fakeObserver) OnStreamEnd()                            { f.streamEnds++ }
func (f *fakeObserver) OnStreamClear()                          { f.streamClears++ }
func (f *fakeObserver) OnAudioChunk(pcm []int32, format Format) { f.audioChunks++ }
func (f *fakeObserver) OnMetadata(meta Metadata)                { f.metadata = append(f.metadata, meta) }
func (f *fakeObserver) OnPlaybackStateChange(state PlaybackState) {
	f.playbackState = append(f.playbackState, state)
}
func (f *fakeObserver) OnConnectionStateChange(connected bool) { f.connState = append(f.connState, connected) }

type fakeDiscovery struct{ addr string }

func (d *fakeDiscovery) Discover(ctx context.Context, timeout time.Duration) (string, bool, error) {
	return d.addr, true, nil
}
func (d *fakeDiscovery) Advertise(ctx context.Context, port int) error { return nil }

type fakeDecoder struct{ initialized bool }

func (d *fakeDecoder) Initialize(format Format) error { d.initialized = true; return nil }
func (d *fakeDecoder) Decode(encoded []byte) ([]int32, error) {
	out := make([]int32, len(encoded))
	for i, b := range encoded {
		out[i] = int32(b)
	}
	return out, nil
}
func (d *fakeDecoder) Cleanup() error { return nil }

type fakeSink struct {
	active bool
	played int
}

func (s *fakeSink) Start(format Format) error { s.active = true; return nil }
func (s *fakeSink) Play(pcm []int32) error    { s.played++; return nil }
func (s *fakeSink) ClearBuffer() error        { return nil }
func (s *fakeSink) Stop() error               { s.active = false; return nil }
func (s *fakeSink) IsActive() bool            { return s.active }

func newTestSupervisor() (*Supervisor, *fakeObserver, *fakeSink) {
	obs := &fakeObserver{}
	sink := &fakeSink{}
	cfg := DefaultConfig()
	cfg.PlayerName = "test"
	cfg.PersistentClientID = "test-client"
	sup := New(cfg, obs, &fakeDiscovery{addr: "127.0.0.1:1"}, func() Decoder { return &fakeDecoder{} }, sink)
	return sup, obs, sink
}

func TestHandleStreamStartTransitionsAndNotifies(t *testing.T) {
	sup, obs, sink := newTestSupervisor()
	for _, st := range []session.State{session.Connecting, session.HandshakePending, session.SyncBootstrapping, session.Idle} {
		if err := sup.machine.Transition(st); err != nil {
			t.Fatalf("priming transition to %s: %v", st, err)
		}
	}

	sup.handleStreamStart(protocol.StreamStart{
		Player: protocol.StreamStartPlayer{Codec: "pcm", SampleRate: 48_000, Channels: 2, BitDepth: 16},
	})

	if !sup.isStreaming() {
		t.Fatal("expected machine to be in Streaming state")
	}
	if len(obs.streamStarts) != 1 {
		t.Fatalf("OnStreamStart called %d times, want 1", len(obs.streamStarts))
	}
	if !sink.active {
		t.Fatal("expected sink to be started")
	}

	sup.handleStreamEnd()
	if sup.isStreaming() {
		t.Fatal("expected machine to leave Streaming state")
	}
	if obs.streamEnds != 1 {
		t.Errorf("OnStreamEnd called %d times, want 1", obs.streamEnds)
	}
	if sink.active {
		t.Fatal("expected sink to be stopped")
	}
}

func TestHandlePlaybackStateNotifiesObserver(t *testing.T) {
	sup, obs, _ := newTestSupervisor()
	sup.handlePlaybackState("playing")

	if len(obs.playbackState) != 1 || obs.playbackState[0] != PlaybackPlaying {
		t.Errorf("playbackState = %v, want [playing]", obs.playbackState)
	}
}

func TestHandleServerStateMetadataNotifiesObserver(t *testing.T) {
	sup, obs, _ := newTestSupervisor()
	title := "Song"
	sup.handleServerState(protocol.ServerState{Metadata: &protocol.MetadataState{Title: &title}})

	if len(obs.metadata) != 1 || obs.metadata[0].Title == nil || *obs.metadata[0].Title != title {
		t.Errorf("metadata = %+v, want title %q", obs.metadata, title)
	}
}

func TestHandleServerTimeFeedsClockAndDropsStale(t *testing.T) {
	sup, _, _ := newTestSupervisor()
	// t1 is a real wall-clock send time so the round trip measured against
	// handleServerTime's own t4 stays well under the 100ms rtt limit.
	t1 := time.Now().UnixMicro()
	sup.pending[t1] = struct{}{}

	sup.handleServerTime(protocol.ServerTime{ClientTransmitted: t1, ServerReceived: 0, ServerTransmitted: 0})
	if !sup.clock.HasOrigin() {
		t.Fatal("expected clock origin to be set from a pending sample")
	}

	// Same client_transmitted again: no longer pending, must be dropped as stale.
	sup.handleServerTime(protocol.ServerTime{ClientTransmitted: t1})
	if _, ok := sup.pending[t1]; ok {
		t.Fatal("pending entry should have been consumed, not re-added")
	}
}
