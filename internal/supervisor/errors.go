// ABOUTME: Named error kinds for the Supervisor's failure semantics (§7)
// ABOUTME: Callers use errors.Is/errors.As instead of string-matching ad hoc fmt.Errorf text
package supervisor

import "errors"

var (
	// ErrConnectTimeout mirrors connection.ErrConnectTimeout at the
	// supervisor boundary so callers need only import this package.
	ErrConnectTimeout = errors.New("supervisor: connect timeout")
	// ErrSocketClosed is reported when the socket closes unexpectedly
	// mid-session.
	ErrSocketClosed = errors.New("supervisor: socket closed")
	// ErrSocketError wraps a transport-level read/write failure.
	ErrSocketError = errors.New("supervisor: socket error")

	// ErrUnknownMessageType is logged, never fatal.
	ErrUnknownMessageType = errors.New("supervisor: unknown message type")
	// ErrStaleSyncResponse is dropped silently; exported for logging/tests.
	ErrStaleSyncResponse = errors.New("supervisor: stale sync response")

	// ErrDecodeTimeout and ErrDecodeFailure cause the chunk to be dropped
	// without disturbing the scheduler or connection.
	ErrDecodeTimeout = errors.New("supervisor: decode timeout")
	ErrDecodeFailure = errors.New("supervisor: decode failure")

	// ErrSchedulerQueueFull and ErrChunkTooLate are per-chunk, non-fatal.
	ErrSchedulerQueueFull = errors.New("supervisor: scheduler queue full")
	ErrChunkTooLate       = errors.New("supervisor: chunk too late")

	// ErrSyncLost may trigger scheduler recovery; the connection continues.
	ErrSyncLost = errors.New("supervisor: sync lost")

	// ErrDiscoveryTimeout ends a connect attempt when no address is
	// configured and discovery finds no server. Run treats it like any other
	// failed attempt and retries discovery after the backoff delay; it does
	// not return early, including on the first attempt.
	ErrDiscoveryTimeout = errors.New("supervisor: discovery timeout")
)
