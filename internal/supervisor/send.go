// ABOUTME: Outbound message construction; every send funnels through sendJSON on the single writer
package supervisor

import (
	"time"

	"github.com/sendspin/sendspin-player-go/internal/connection"
	"github.com/sendspin/sendspin-player-go/internal/protocol"
)

func (s *Supervisor) sendJSON(conn *connection.Conn, msgType string, payload interface{}) error {
	return conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

func (s *Supervisor) sendClientHello(conn *connection.Conn) error {
	support := &protocol.PlayerV1Support{
		SupportedFormats:  supportedFormats,
		BufferCapacity:    bufferCapacity,
		SupportedCommands: []string{"volume", "mute"},
	}
	hello := protocol.ClientHello{
		ClientID:            s.cfg.PersistentClientID,
		Name:                s.cfg.PlayerName,
		Version:             protocolVersion,
		SupportedRoles:      []string{"player@v1", "metadata@v1", "artwork@v1", "visualizer@v1"},
		DeviceInfo:          &protocol.DeviceInfo{ProductName: "sendspin-player-go", Manufacturer: "sendspin", SoftwareVersion: "1.0"},
		PlayerV1Support:     support,
		ArtworkV1Support:    &protocol.ArtworkV1Support{},
		VisualizerV1Support: &protocol.VisualizerV1Support{},
		// Legacy unversioned duplicates for servers predating the @v1 keys.
		PlayerSupport:     support,
		ArtworkSupport:    &protocol.ArtworkV1Support{},
		VisualizerSupport: &protocol.VisualizerV1Support{},
	}
	return s.sendJSON(conn, "client/hello", hello)
}

func (s *Supervisor) sendClientState(conn *connection.Conn, state string) error {
	s.mu.Lock()
	volume, muted := s.volume, s.muted
	s.mu.Unlock()

	return s.sendJSON(conn, "client/state", protocol.ClientState{
		Player: protocol.PlayerState{State: state, Volume: volume, Muted: muted},
	})
}

func (s *Supervisor) sendClientTime(conn *connection.Conn) {
	t1 := time.Now().UnixMicro()
	s.pendingMu.Lock()
	s.pending[t1] = struct{}{}
	s.pendingMu.Unlock()

	if err := s.sendJSON(conn, "client/time", protocol.ClientTime{ClientTransmitted: t1}); err != nil {
		s.pendingMu.Lock()
		delete(s.pending, t1)
		s.pendingMu.Unlock()
	}
}

func (s *Supervisor) drainStalePending() {
	now := time.Now().UnixMicro()
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for t1 := range s.pending {
		if now-t1 > stalePendingAfterUs {
			delete(s.pending, t1)
		}
	}
}

// takePending removes t1 from the pending table, reporting whether it was
// present (and therefore not stale/unsolicited).
func (s *Supervisor) takePending(t1 int64) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, ok := s.pending[t1]; !ok {
		return false
	}
	delete(s.pending, t1)
	return true
}
