// ABOUTME: Inbound frame reading and dispatch: the reader goroutine decodes frames off the wire
// ABOUTME: the single main-loop goroutine interprets them and drives all state changes
package supervisor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sendspin/sendspin-player-go/internal/clockfilter"
	"github.com/sendspin/sendspin-player-go/internal/connection"
	"github.com/sendspin/sendspin-player-go/internal/protocol"
	"github.com/sendspin/sendspin-player-go/internal/scheduler"
	"github.com/sendspin/sendspin-player-go/internal/session"
)

// inboundMsg carries one decoded frame (or a terminal read error) from the
// reader goroutine to the main loop.
type inboundMsg struct {
	text   *protocol.Message
	binary *protocol.BinaryFrame
	err    error
}

// readerLoop is the only goroutine that calls conn.ReadMessage; it never
// writes to the socket, keeping all sends on the main-loop goroutine.
func (s *Supervisor) readerLoop(conn *connection.Conn, out chan<- inboundMsg) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			out <- inboundMsg{err: err}
			return
		}

		if mt == websocket.BinaryMessage {
			frame, ferr := protocol.DecodeBinaryFrame(data)
			if ferr != nil {
				log.Printf("supervisor: %v", ferr)
				continue
			}
			out <- inboundMsg{binary: &frame}
			continue
		}

		var msg protocol.Message
		if jerr := json.Unmarshal(data, &msg); jerr != nil {
			log.Printf("supervisor: %v: %v", ErrUnknownMessageType, jerr)
			continue
		}
		out <- inboundMsg{text: &msg}
	}
}

func (s *Supervisor) dispatch(conn *connection.Conn, msg inboundMsg) {
	if msg.binary != nil {
		s.dispatchBinary(msg.binary)
		return
	}
	s.dispatchText(conn, msg.text)
}

func (s *Supervisor) dispatchBinary(frame *protocol.BinaryFrame) {
	switch frame.Kind {
	case protocol.KindAudioChunk:
		s.handleAudioChunk(frame.Timestamp, frame.Payload)
	case protocol.KindAuxiliary:
		log.Printf("supervisor: discarding auxiliary binary frame (%d bytes)", len(frame.Payload))
	default:
		log.Printf("supervisor: discarding unknown binary frame kind 0x%02x", frame.Kind)
	}
}

func (s *Supervisor) handleAudioChunk(serverTS int64, encoded []byte) {
	s.mu.Lock()
	decoder := s.decoder
	format := s.format
	sched := s.scheduler
	s.mu.Unlock()

	if decoder == nil || sched == nil || format == nil {
		return // no active stream; nothing to schedule
	}

	pcm, err := decodeWithTimeout(decoder, encoded, decodeTimeout)
	if err != nil {
		log.Printf("supervisor: %v", err)
		return
	}

	playAt := s.clock.ServerToUnixMicros(serverTS)
	sched.Enqueue(playAt, pcm)
}

func decodeWithTimeout(decoder Decoder, encoded []byte, timeout time.Duration) ([]int32, error) {
	type result struct {
		pcm []int32
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		pcm, err := decoder.Decode(encoded)
		resultCh <- result{pcm: pcm, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, ErrDecodeFailure
		}
		return r.pcm, nil
	case <-time.After(timeout):
		return nil, ErrDecodeTimeout
	}
}

func (s *Supervisor) dispatchText(conn *connection.Conn, msg *protocol.Message) {
	payload, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case "server/hello":
		log.Printf("supervisor: unexpected server/hello after handshake")

	case "server/time":
		var st protocol.ServerTime
		if err := json.Unmarshal(payload, &st); err != nil {
			log.Printf("supervisor: %v: server/time: %v", ErrUnknownMessageType, err)
			return
		}
		s.handleServerTime(st)

	case "server/command":
		var cmd protocol.ServerCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Printf("supervisor: %v: server/command: %v", ErrUnknownMessageType, err)
			return
		}
		s.handleServerCommand(conn, cmd)

	case "server/state":
		var st protocol.ServerState
		if err := json.Unmarshal(payload, &st); err != nil {
			log.Printf("supervisor: %v: server/state: %v", ErrUnknownMessageType, err)
			return
		}
		s.handleServerState(st)

	case "stream/start":
		var start protocol.StreamStart
		if err := json.Unmarshal(payload, &start); err != nil {
			log.Printf("supervisor: %v: stream/start: %v", ErrUnknownMessageType, err)
			return
		}
		s.handleStreamStart(start)

	case "stream/clear":
		s.handleStreamClear()

	case "stream/end":
		s.handleStreamEnd()

	case "group/update":
		var gu protocol.GroupUpdate
		if err := json.Unmarshal(payload, &gu); err != nil {
			log.Printf("supervisor: %v: group/update: %v", ErrUnknownMessageType, err)
			return
		}
		s.handlePlaybackState(gu.PlaybackState)

	case "session/update":
		var su protocol.SessionUpdate
		if err := json.Unmarshal(payload, &su); err != nil {
			log.Printf("supervisor: %v: session/update: %v", ErrUnknownMessageType, err)
			return
		}
		s.handlePlaybackState(su.PlaybackState)

	default:
		log.Printf("supervisor: %v: %q", ErrUnknownMessageType, msg.Type)
	}
}

func (s *Supervisor) handleServerTime(st protocol.ServerTime) {
	t4 := time.Now().UnixMicro()
	if !s.takePending(st.ClientTransmitted) {
		log.Printf("supervisor: %v: client_transmitted=%d", ErrStaleSyncResponse, st.ClientTransmitted)
		return
	}
	s.clock.SubmitSample(st.ClientTransmitted, st.ServerReceived, st.ServerTransmitted, t4)
}

func (s *Supervisor) handleServerCommand(conn *connection.Conn, cmd protocol.ServerCommand) {
	switch cmd.Player.Command {
	case "volume":
		s.mu.Lock()
		s.volume = cmd.Player.Volume
		s.mu.Unlock()
	case "mute":
		s.mu.Lock()
		s.muted = cmd.Player.Mute
		s.mu.Unlock()
	default:
		log.Printf("supervisor: unknown player command %q", cmd.Player.Command)
		return
	}
	state := "idle"
	if s.isStreaming() {
		state = "playing"
	}
	if err := s.sendClientState(conn, state); err != nil {
		log.Printf("supervisor: failed to echo client/state: %v", err)
	}
}

func (s *Supervisor) isStreaming() bool {
	return s.machine.Current() == session.Streaming
}

func (s *Supervisor) handleServerState(st protocol.ServerState) {
	if st.Metadata != nil {
		meta := metadataFromWire(st.Metadata)
		s.mu.Lock()
		s.metadata = meta
		s.mu.Unlock()
		s.observer.OnMetadata(meta)
		s.resolveArtworkAsync(meta)
	}
	if st.Controller != nil && st.Controller.PlaybackState != nil {
		s.handlePlaybackState(*st.Controller.PlaybackState)
	}
}

// resolveArtworkAsync fetches the artwork referenced by meta.ArtworkURL in
// the background, if a resolver is configured, and re-notifies the
// observer with ArtworkLocalPath filled in once it's ready. Never blocks
// the dispatch loop: a slow or failing download only delays art, never
// playback.
func (s *Supervisor) resolveArtworkAsync(meta Metadata) {
	if s.artwork == nil || meta.ArtworkURL == nil || *meta.ArtworkURL == "" {
		return
	}
	url := *meta.ArtworkURL
	go func() {
		path, err := s.artwork.Resolve(context.Background(), url)
		if err != nil {
			log.Printf("supervisor: artwork resolve failed for %s: %v", url, err)
			return
		}

		s.mu.Lock()
		if s.metadata.ArtworkURL == nil || *s.metadata.ArtworkURL != url {
			s.mu.Unlock()
			return
		}
		updated := s.metadata
		updated.ArtworkLocalPath = &path
		s.metadata = updated
		s.mu.Unlock()

		s.observer.OnMetadata(updated)
	}()
}

func metadataFromWire(m *protocol.MetadataState) Metadata {
	meta := Metadata{
		Title:       m.Title,
		Artist:      m.Artist,
		AlbumArtist: m.AlbumArtist,
		Album:       m.Album,
		ArtworkURL:  m.ArtworkURL,
		Year:        m.Year,
		Track:       m.Track,
		Repeat:      m.Repeat,
		Shuffle:     m.Shuffle,
	}
	if m.Progress != nil {
		meta.TrackProgress = &m.Progress.TrackProgress
		meta.TrackDuration = &m.Progress.TrackDuration
		meta.PlaybackSpeed = &m.Progress.PlaybackSpeed
	}
	return meta
}

func (s *Supervisor) handlePlaybackState(state string) {
	ps := PlaybackState(state)
	s.mu.Lock()
	s.playbackState = ps
	s.mu.Unlock()
	s.observer.OnPlaybackStateChange(ps)
}

func (s *Supervisor) handleStreamStart(start protocol.StreamStart) {
	format := Format{
		Codec:       start.Player.Codec,
		SampleRate:  start.Player.SampleRate,
		Channels:    start.Player.Channels,
		BitDepth:    start.Player.BitDepth,
		CodecHeader: start.Player.CodecHeader,
	}

	decoder := s.newDecoder()
	if err := decoder.Initialize(format); err != nil {
		log.Printf("supervisor: decoder initialize failed: %v", err)
		return
	}
	if err := s.sink.Start(format); err != nil {
		log.Printf("supervisor: sink start failed: %v", err)
		_ = decoder.Cleanup()
		return
	}

	sched := scheduler.New(s.cfg.BufferMs, &sinkAdapter{sup: s}, clockQualityAdapter{clock: s.clock})
	sched.Start()

	s.mu.Lock()
	s.format = &format
	s.decoder = decoder
	s.scheduler = sched
	s.mu.Unlock()

	if err := s.machine.Transition(session.Streaming); err != nil {
		log.Printf("supervisor: %v", err)
	}
	s.observer.OnStreamStart(format)
}

func (s *Supervisor) handleStreamClear() {
	s.mu.Lock()
	sched := s.scheduler
	s.mu.Unlock()
	if sched != nil {
		sched.Clear()
	}
	if err := s.sink.ClearBuffer(); err != nil {
		log.Printf("supervisor: sink clear failed: %v", err)
	}
	s.observer.OnStreamClear()
}

func (s *Supervisor) handleStreamEnd() {
	s.mu.Lock()
	sched := s.scheduler
	decoder := s.decoder
	s.scheduler = nil
	s.decoder = nil
	s.format = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	if decoder != nil {
		_ = decoder.Cleanup()
	}
	if err := s.sink.Stop(); err != nil {
		log.Printf("supervisor: sink stop failed: %v", err)
	}
	if err := s.machine.Transition(session.Idle); err != nil {
		log.Printf("supervisor: %v", err)
	}
	s.observer.OnStreamEnd()
}

// sinkAdapter bridges the scheduler's release path to the external Sink
// and the host observer.
type sinkAdapter struct {
	sup *Supervisor
}

func (a *sinkAdapter) Play(buf scheduler.Buffer) {
	a.sup.mu.Lock()
	format := a.sup.format
	a.sup.mu.Unlock()
	if format == nil {
		return
	}
	if err := a.sup.sink.Play(buf.Samples); err != nil {
		log.Printf("supervisor: sink play failed: %v", err)
		return
	}
	a.sup.observer.OnAudioChunk(buf.Samples, *format)
}

// clockQualityAdapter exposes the Clock Filter's quality to the scheduler
// watchdog through the small ClockQuality interface the scheduler expects.
type clockQualityAdapter struct {
	clock *clockfilter.Filter
}

func (a clockQualityAdapter) IsLost() bool {
	return a.clock.CurrentQuality() == clockfilter.Lost
}
