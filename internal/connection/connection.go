// ABOUTME: Connection Manager: dials the Sendspin WebSocket and owns reconnect backoff
// ABOUTME: All sends are serialized through one Conn so no two JSON objects interleave on the wire
package connection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectTimeout is returned when Dial does not complete within the
// connect timeout.
var ErrConnectTimeout = errors.New("connection: connect timeout")

const (
	connectTimeout  = 10 * time.Second
	initialDelayMs  = 1000
	maxDelayMs      = 30_000
)

// Conn wraps a single WebSocket connection and serializes writes so the
// Supervisor's single writer never interleaves two frames.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Dial opens the Sendspin WebSocket at ws://{addr}/sendspin, failing with
// ErrConnectTimeout if the handshake does not complete inside 10s. On
// timeout the dial is simply abandoned; there is no live socket to race
// against, so no indeterminate-state cleanup is required.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/sendspin"}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrConnectTimeout
		}
		return nil, fmt.Errorf("connection: dial failed: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// WriteJSON serializes one JSON message. Callers must not call this
// concurrently with WriteBinary expecting ordering between the two; both
// share the same mutex so overall frame order is preserved as issued.
func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// WriteBinary writes a raw binary frame.
func (c *Conn) WriteBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// ReadMessage blocks for the next inbound frame, returning its WebSocket
// message type (websocket.TextMessage or websocket.BinaryMessage) and data.
func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

// SetReadDeadline bounds the next ReadMessage call, used during the
// handshake wait for server/hello.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// CloseGraceful sends a normal-closure control frame and closes the
// underlying socket.
func (c *Conn) CloseGraceful() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// Close closes the underlying socket without a close handshake, for fault
// stops.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Close()
}

// Backoff implements the reconnect delay sequence of §4.5:
// min(1000 * 2^(attempt-1), 30000) ms, with unbounded attempts.
type Backoff struct {
	mu      sync.Mutex
	attempt int
}

// NextDelay returns the delay before the next reconnect attempt and
// advances the attempt counter.
func (b *Backoff) NextDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt++
	ms := initialDelayMs << (b.attempt - 1)
	if ms > maxDelayMs || ms <= 0 {
		ms = maxDelayMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Reset zeroes the attempt counter, called on a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}

// Attempt returns the current attempt count, for observability/logging.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}
