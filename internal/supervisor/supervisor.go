// ABOUTME: Supervisor: wires the Clock Filter, Jitter Scheduler, and Connection Manager
// ABOUTME: Single-writer session loop; all socket sends are serialized through it (§4.6, §9)
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/sendspin/sendspin-player-go/internal/clockfilter"
	"github.com/sendspin/sendspin-player-go/internal/connection"
	"github.com/sendspin/sendspin-player-go/internal/protocol"
	"github.com/sendspin/sendspin-player-go/internal/scheduler"
	"github.com/sendspin/sendspin-player-go/internal/session"
)

const (
	protocolVersion   = 1
	bufferCapacity    = 1_048_576
	handshakeTimeout  = 5 * time.Second
	initialSyncRounds = 5
	initialSyncSpacing = 100 * time.Millisecond
	continuousSyncInterval = 1 * time.Second
	stalePendingAfterUs = 2_000_000
	decodeTimeout     = 1 * time.Second
	goodbyeFlushWait  = 100 * time.Millisecond
)

var supportedFormats = []protocol.AudioFormat{
	{Codec: "pcm", SampleRate: 192_000, Channels: 2, BitDepth: 24},
	{Codec: "pcm", SampleRate: 176_400, Channels: 2, BitDepth: 24},
	{Codec: "pcm", SampleRate: 96_000, Channels: 2, BitDepth: 24},
	{Codec: "pcm", SampleRate: 88_200, Channels: 2, BitDepth: 24},
	{Codec: "pcm", SampleRate: 48_000, Channels: 2, BitDepth: 16},
	{Codec: "pcm", SampleRate: 44_100, Channels: 2, BitDepth: 16},
	{Codec: "opus", SampleRate: 48_000, Channels: 2, BitDepth: 16},
}

// Supervisor owns a single Sendspin session: one connection, one Clock
// Filter, and (while streaming) one Jitter Scheduler. See collaborators.go
// for the interfaces it consumes and dispatch.go for inbound dispatch.
type Supervisor struct {
	cfg        Config
	observer   Observer
	discovery  Discovery
	newDecoder func() Decoder
	sink       Sink
	artwork    ArtworkResolver

	machine *session.Machine
	clock   *clockfilter.Filter

	mu            sync.Mutex
	volume        int
	muted         bool
	format        *Format
	scheduler     *scheduler.Scheduler
	decoder       Decoder
	metadata      Metadata
	playbackState PlaybackState

	pendingMu sync.Mutex
	pending   map[int64]struct{}

	wasDiscovered bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a Supervisor. newDecoder constructs a fresh Decoder per
// stream (Initialize is called once per stream/start, Cleanup on
// stream/end).
func New(cfg Config, observer Observer, discovery Discovery, newDecoder func() Decoder, sink Sink) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		observer:   observer,
		discovery:  discovery,
		newDecoder: newDecoder,
		sink:       sink,
		machine:    session.NewMachine(),
		clock:      clockfilter.New(),
		volume:     cfg.InitialVolume,
		muted:      cfg.InitialMuted,
		pending:    make(map[int64]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// SetArtworkResolver wires an optional artwork resolver. Must be called
// before Run; nil disables artwork resolution.
func (s *Supervisor) SetArtworkResolver(r ArtworkResolver) {
	s.artwork = r
}

// Run connects, handshakes, and then serves the session until ctx is
// canceled or Stop is called. It is the Supervisor's single entry point
// and owns every socket send.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := &connection.Backoff{}

	if s.discovery != nil {
		go func() {
			if err := s.discovery.Advertise(ctx, s.cfg.AdvertisePort); err != nil {
				log.Printf("supervisor: mdns advertise failed: %v", err)
			}
		}()
	}

	for {
		err := s.runOnce(ctx, backoff)
		s.observer.OnConnectionStateChange(false)
		s.machine.ForceDisconnected()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}
		if err != nil {
			log.Printf("supervisor: session ended: %v", err)
		}

		delay := backoff.NextDelay()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce performs one connect-handshake-serve cycle.
func (s *Supervisor) runOnce(ctx context.Context, backoff *connection.Backoff) error {
	if err := s.machine.Transition(session.Connecting); err != nil {
		return err
	}

	addr, err := s.resolveAddr(ctx)
	if err != nil {
		return err
	}

	conn, err := connection.Dial(ctx, addr)
	if err != nil {
		if errors.Is(err, connection.ErrConnectTimeout) {
			return ErrConnectTimeout
		}
		return fmt.Errorf("%w: %v", ErrSocketError, err)
	}
	defer conn.Close()

	if err := s.machine.Transition(session.HandshakePending); err != nil {
		return err
	}
	if err := s.sendClientHello(conn); err != nil {
		return fmt.Errorf("%w: %v", ErrSocketError, err)
	}
	if err := s.awaitServerHello(conn); err != nil {
		return err
	}

	if err := s.machine.Transition(session.SyncBootstrapping); err != nil {
		return err
	}
	if err := s.sendClientState(conn, "synchronized"); err != nil {
		return fmt.Errorf("%w: %v", ErrSocketError, err)
	}
	s.observer.OnConnectionStateChange(true)
	backoff.Reset()

	inboundCh := make(chan inboundMsg, 64)

	// readerLoop and mainLoop are the session's two structurally-concurrent
	// tasks: one goroutine reads the socket, one drives all state and
	// outbound sends. errgroup joins them so runOnce returns only once both
	// have actually exited, rather than leaking the reader goroutine across
	// reconnects.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.readerLoop(conn, inboundCh)
		return nil
	})

	s.runInitialSync(conn, inboundCh)

	if err := s.machine.Transition(session.Idle); err != nil {
		return err
	}

	g.Go(func() error {
		return s.mainLoop(gctx, conn, inboundCh)
	})

	return g.Wait()
}

func (s *Supervisor) resolveAddr(ctx context.Context) (string, error) {
	if s.cfg.ServerAddr != "" {
		s.wasDiscovered = false
		return s.cfg.ServerAddr, nil
	}
	addr, ok, err := s.discovery.Discover(ctx, s.cfg.discoveryTimeout())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
	}
	if !ok {
		return "", ErrDiscoveryTimeout
	}
	s.wasDiscovered = true
	return addr, nil
}

func (s *Supervisor) awaitServerHello(conn *connection.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	mt, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: waiting for server/hello: %v", ErrSocketError, err)
	}
	if mt != websocket.TextMessage {
		return fmt.Errorf("%w: expected text server/hello", ErrUnknownMessageType)
	}
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownMessageType, err)
	}
	if msg.Type != "server/hello" {
		return fmt.Errorf("%w: got %q, want server/hello", ErrUnknownMessageType, msg.Type)
	}
	return nil
}

func (s *Supervisor) runInitialSync(conn *connection.Conn, inboundCh chan inboundMsg) {
	for i := 0; i < initialSyncRounds; i++ {
		s.sendClientTime(conn)
		if i < initialSyncRounds-1 {
			time.Sleep(initialSyncSpacing)
		}
	}
	_ = inboundCh // responses are consumed uniformly by mainLoop's dispatch
}

// mainLoop runs the continuous sync loop and inbound message dispatch
// until ctx/stop fires, at which point it performs the Closing sequence.
func (s *Supervisor) mainLoop(ctx context.Context, conn *connection.Conn, inboundCh chan inboundMsg) error {
	ticker := time.NewTicker(continuousSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.close(conn)
			return ctx.Err()
		case <-s.stopCh:
			s.closeGracefully(conn)
			return nil
		case <-ticker.C:
			s.clock.Tick()
			s.drainStalePending()
			s.sendClientTime(conn)
		case msg, ok := <-inboundCh:
			if !ok {
				return ErrSocketClosed
			}
			if msg.err != nil {
				return fmt.Errorf("%w: %v", ErrSocketClosed, msg.err)
			}
			s.dispatch(conn, msg)
		}
	}
}

// Stop requests a clean shutdown: client/goodbye, brief flush wait, then
// socket close. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// SchedulerStats reports the active stream's buffer counters. The zero
// value with ok=false is returned when no stream is active.
type SchedulerStats struct {
	Received    int
	Played      int
	Dropped     int
	QueueLen    int
	IsBuffering bool
}

// Stats returns the current scheduler counters, or ok=false if idle.
func (s *Supervisor) Stats() (stats SchedulerStats, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return SchedulerStats{}, false
	}
	st := s.scheduler.Stats()
	return SchedulerStats{
		Received:    st.Received,
		Played:      st.Played,
		Dropped:     st.Dropped,
		QueueLen:    s.scheduler.QueueLen(),
		IsBuffering: s.scheduler.IsBuffering(),
	}, true
}

func (s *Supervisor) closeGracefully(conn *connection.Conn) {
	_ = s.machine.Transition(session.Closing)
	_ = s.sendJSON(conn, "client/goodbye", protocol.ClientGoodbye{Reason: "shutdown"})
	time.Sleep(goodbyeFlushWait)
	s.close(conn)
}

func (s *Supervisor) close(conn *connection.Conn) {
	s.mu.Lock()
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	if s.decoder != nil {
		_ = s.decoder.Cleanup()
		s.decoder = nil
	}
	s.mu.Unlock()
	if s.sink.IsActive() {
		_ = s.sink.Stop()
	}
	conn.Close()
	_ = s.machine.Transition(session.Disconnected)
}
