// ABOUTME: Session State Machine states and legal transitions (§4.4)
// ABOUTME: Pure bookkeeping; the Supervisor drives transitions and performs the associated I/O
package session

import "fmt"

// State is one node of the Session State Machine.
type State int

const (
	Disconnected State = iota
	Connecting
	HandshakePending
	SyncBootstrapping
	Idle
	Streaming
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case HandshakePending:
		return "handshake_pending"
	case SyncBootstrapping:
		return "sync_bootstrapping"
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates the edges of §4.4's state diagram. "At any
// state" transitions (server/command, server/state) are not state changes
// at all and so are not represented here.
var legalTransitions = map[State]map[State]bool{
	Disconnected:      {Connecting: true},
	Connecting:        {HandshakePending: true, Disconnected: true},
	HandshakePending:  {SyncBootstrapping: true, Disconnected: true},
	SyncBootstrapping: {Idle: true, Disconnected: true},
	Idle:              {Streaming: true, Closing: true, Disconnected: true},
	Streaming:         {Idle: true, Closing: true, Disconnected: true},
	Closing:           {Disconnected: true},
}

// Machine tracks the session's current state and rejects illegal
// transitions. It holds no I/O of its own: the Supervisor calls Transition
// before performing the side effects a transition obligates it to (sending
// client/hello, starting the scheduler, and so on).
type Machine struct {
	current State
}

// NewMachine returns a Machine starting in Disconnected.
func NewMachine() *Machine {
	return &Machine{current: Disconnected}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	return m.current
}

// Transition moves the machine to next, returning an error if the edge
// from the current state to next is not in the state diagram.
func (m *Machine) Transition(next State) error {
	edges, ok := legalTransitions[m.current]
	if !ok || !edges[next] {
		return fmt.Errorf("session: illegal transition %s -> %s", m.current, next)
	}
	m.current = next
	return nil
}

// ForceDisconnected resets the machine to Disconnected regardless of the
// current state, for the fault-stop path: a socket error or timeout
// abandons whatever state the handshake/streaming was in without walking
// the legal-edge graph back down.
func (m *Machine) ForceDisconnected() {
	m.current = Disconnected
}
