// ABOUTME: HTTPStreamSink: serves decoded PCM as a chunked HTTP audio stream to listening clients
// ABOUTME: Fan-out broadcaster pattern; a client with a full channel misses that chunk rather than blocking playback
package sink

import (
	"encoding/binary"
	"log"
	"net/http"
	"sync"

	"github.com/sendspin/sendspin-player-go/internal/supervisor"
)

const clientBufferSlots = 64

// HTTPStreamSink fans decoded audio out to any number of HTTP listeners as
// raw little-endian PCM bytes. It never blocks on a slow client: a full
// client channel causes that client's chunk to be dropped, not the
// playback pipeline to stall.
type HTTPStreamSink struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	active  bool
	format  supervisor.Format
}

type streamClient struct {
	ch chan []byte
}

// NewHTTPStreamSink returns a sink with no listeners yet.
func NewHTTPStreamSink() *HTTPStreamSink {
	return &HTTPStreamSink{clients: make(map[*streamClient]struct{})}
}

func (h *HTTPStreamSink) Start(format supervisor.Format) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.format = format
	h.active = true
	return nil
}

func (h *HTTPStreamSink) Play(samples []int32) error {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s>>8)))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- out:
		default:
			log.Printf("sink: http stream client buffer full, dropping chunk")
		}
	}
	return nil
}

func (h *HTTPStreamSink) ClearBuffer() error { return nil }

func (h *HTTPStreamSink) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
	for c := range h.clients {
		close(c.ch)
	}
	h.clients = make(map[*streamClient]struct{})
	return nil
}

func (h *HTTPStreamSink) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Handler serves the live PCM stream over chunked HTTP.
func (h *HTTPStreamSink) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		if !h.active {
			h.mu.Unlock()
			http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "audio/L16")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		client := &streamClient{ch: make(chan []byte, clientBufferSlots)}
		h.clients[client] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
		}()

		flusher, _ := w.(http.Flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			case chunk, ok := <-client.ch:
				if !ok {
					return
				}
				if _, err := w.Write(chunk); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	})
}
