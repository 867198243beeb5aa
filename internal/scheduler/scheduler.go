// ABOUTME: Jitter Scheduler: buffers decoded audio and releases it at its mapped play time
// ABOUTME: Min-heap keyed by play_at_unix_us, with startup buffering and a watchdog recovery path
package scheduler

import (
	"container/heap"
	"log"
	"sync"
	"time"
)

const (
	chunkDurationMs = 20
	lateWindowUs    = 50_000

	buffering5sUs            = 5_000_000
	noPlaybackAfterReceiptUs = 3_000_000
	lostQualityDropThreshold = 20
	stuckQueueUs             = 5_000_000
	stuckQueueMinDepth       = 10

	releaseTickInterval  = 10 * time.Millisecond
	watchdogTickInterval = 1 * time.Second
)

// nowFunc is overridable in tests.
var nowFunc = func() int64 { return time.Now().UnixMicro() }

// Buffer is one decoded chunk of PCM audio awaiting playback, tagged with
// the Unix-microsecond instant it was mapped to by the Clock Filter.
type Buffer struct {
	PlayAtUnixUs int64
	Samples      []int32
}

// Sink receives released buffers in play order.
type Sink interface {
	Play(buf Buffer)
}

// ClockQuality reports whether the caller's clock mapping is currently
// trustworthy; the scheduler only inspects this to decide whether a long
// drop streak should trigger recovery.
type ClockQuality interface {
	IsLost() bool
}

// Stats mirrors the counters the Supervisor and tests inspect.
type Stats struct {
	Received int
	Played   int
	Dropped  int
}

// Scheduler is the Jitter Scheduler of §4.3: a min-heap of Buffer ordered
// by PlayAtUnixUs, gated by a startup buffering phase and monitored by a
// watchdog that can force a flush-and-rebuffer recovery.
type Scheduler struct {
	mu sync.Mutex

	sink  Sink
	clock ClockQuality

	bufferTargetChunks int
	maxQueueChunks      int

	queue bufferHeap

	buffering          bool
	bufferingStartedUs int64

	received         int
	played           int
	dropped          int
	consecutiveDrops int

	lastEnqueueUnixUs int64
	lastPlayUnixUs    int64
	haveLastPlay      bool

	stopCh chan struct{}
	doneWg sync.WaitGroup
	once   sync.Once
}

// New builds a Scheduler targeting bufferMs milliseconds of buffered audio
// before playback starts, per §4.3's buffer_target_chunks/max_queue_chunks
// formulas.
func New(bufferMs int, sink Sink, clock ClockQuality) *Scheduler {
	target := bufferMs / chunkDurationMs
	if target < 1 {
		target = 1
	}
	maxQueue := target + 50
	if maxQueue > 600 {
		maxQueue = 600
	}

	s := &Scheduler{
		sink:               sink,
		clock:              clock,
		bufferTargetChunks: target,
		maxQueueChunks:     maxQueue,
		buffering:          true,
		bufferingStartedUs: nowFunc(),
		stopCh:             make(chan struct{}),
	}
	heap.Init(&s.queue)
	return s
}

// Start launches the release and watchdog background tasks.
func (s *Scheduler) Start() {
	s.doneWg.Add(2)
	go s.releaseLoop()
	go s.watchdogLoop()
}

// Stop halts both background tasks. Safe to call once; subsequent calls
// are no-ops.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.doneWg.Wait()
}

// Enqueue implements the enqueue procedure of §4.3 for a play instant the
// caller has already mapped from server_ts: drop it if already more than
// 50ms late or the queue is full, otherwise push it into the heap.
func (s *Scheduler) Enqueue(playAtUnixUs int64, samples []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received++
	now := nowFunc()

	if playAtUnixUs-now < -lateWindowUs {
		s.dropped++
		s.consecutiveDrops++
		return
	}
	if s.queue.Len() >= s.maxQueueChunks {
		s.dropped++
		s.consecutiveDrops++
		return
	}

	heap.Push(&s.queue, &queuedBuffer{buf: Buffer{PlayAtUnixUs: playAtUnixUs, Samples: samples}})
	s.lastEnqueueUnixUs = now
}

// Clear flushes the heap and re-enters buffering mode, for stream/clear
// seeks per §4.3/§4.4.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked("stream/clear")
}

func (s *Scheduler) clearLocked(reason string) {
	discarded := s.queue.Len()
	s.dropped += discarded
	s.queue = bufferHeap{}
	heap.Init(&s.queue)
	s.buffering = true
	s.bufferingStartedUs = nowFunc()
	s.consecutiveDrops = 0
	if discarded > 0 || reason != "" {
		log.Printf("scheduler: cleared (%s), discarded %d queued chunks", reason, discarded)
	}
}

// Stats returns a snapshot of the scheduler's counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Received: s.received, Played: s.played, Dropped: s.dropped}
}

// QueueLen returns the number of buffers currently queued.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// IsBuffering reports whether the scheduler is in its startup buffering
// phase (or has re-entered it after a clear/recovery).
func (s *Scheduler) IsBuffering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffering
}

func (s *Scheduler) releaseLoop() {
	defer s.doneWg.Done()
	ticker := time.NewTicker(releaseTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.processQueue()
		}
	}
}

func (s *Scheduler) processQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffering {
		if s.queue.Len() < s.bufferTargetChunks {
			return
		}
		s.buffering = false
	}

	now := nowFunc()
	for s.queue.Len() > 0 {
		next := s.queue[0]
		delta := next.buf.PlayAtUnixUs - now

		if delta > lateWindowUs {
			return
		}

		popped := heap.Pop(&s.queue).(*queuedBuffer)
		if delta < -lateWindowUs {
			s.dropped++
			s.consecutiveDrops++
			continue
		}

		s.sink.Play(popped.buf)
		s.played++
		s.consecutiveDrops = 0
		s.lastPlayUnixUs = now
		s.haveLastPlay = true
	}
}

func (s *Scheduler) watchdogLoop() {
	defer s.doneWg.Done()
	ticker := time.NewTicker(watchdogTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkRecovery()
		}
	}
}

func (s *Scheduler) checkRecovery() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowFunc()

	if s.buffering && now-s.bufferingStartedUs > buffering5sUs {
		log.Printf("scheduler: buffering exceeded 5s, forcing exit")
		s.buffering = false
		return
	}

	recentReceipt := s.lastEnqueueUnixUs != 0 && now-s.lastEnqueueUnixUs < noPlaybackAfterReceiptUs
	stalledSinceLastPlay := s.haveLastPlay && now-s.lastPlayUnixUs > noPlaybackAfterReceiptUs
	if recentReceipt && stalledSinceLastPlay {
		s.recoverLocked("receiving but not playing")
		return
	}

	if s.clock != nil && s.clock.IsLost() && s.consecutiveDrops > lostQualityDropThreshold {
		s.recoverLocked("clock lost with excessive consecutive drops")
		return
	}

	queueStuck := s.queue.Len() > stuckQueueMinDepth &&
		((s.haveLastPlay && now-s.lastPlayUnixUs > stuckQueueUs) || !s.haveLastPlay)
	if queueStuck {
		s.recoverLocked("queue backed up with no playback")
		return
	}
}

func (s *Scheduler) recoverLocked(reason string) {
	log.Printf("scheduler: recovery triggered (%s)", reason)
	s.clearLocked("")
	s.consecutiveDrops = 0
}

// queuedBuffer is the heap element wrapping a Buffer.
type queuedBuffer struct {
	buf   Buffer
	index int
}

// bufferHeap implements heap.Interface ordered by play instant.
type bufferHeap []*queuedBuffer

func (h bufferHeap) Len() int { return len(h) }
func (h bufferHeap) Less(i, j int) bool {
	return h[i].buf.PlayAtUnixUs < h[j].buf.PlayAtUnixUs
}
func (h bufferHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *bufferHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*queuedBuffer)
	item.index = n
	*h = append(*h, item)
}
func (h *bufferHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
