package scheduler

import (
	"sync"
	"testing"
)

type fakeSink struct {
	mu     sync.Mutex
	played []Buffer
}

func (f *fakeSink) Play(buf Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, buf)
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

type fakeClock struct{ lost bool }

func (f *fakeClock) IsLost() bool { return f.lost }

func TestBufferTargetChunksFormula(t *testing.T) {
	s := New(11_000, &fakeSink{}, &fakeClock{})
	if s.bufferTargetChunks != 550 {
		t.Errorf("bufferTargetChunks = %d, want 550", s.bufferTargetChunks)
	}
	if s.maxQueueChunks != 600 {
		t.Errorf("maxQueueChunks = %d, want 600 (capped)", s.maxQueueChunks)
	}
}

func TestBufferTargetChunksMinimumOne(t *testing.T) {
	s := New(5, &fakeSink{}, &fakeClock{})
	if s.bufferTargetChunks != 1 {
		t.Errorf("bufferTargetChunks = %d, want 1", s.bufferTargetChunks)
	}
}

func TestEnqueueDropsLateChunkBoundary(t *testing.T) {
	orig := nowFunc
	var now int64 = 10_000_000
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	s := New(20, &fakeSink{}, &fakeClock{})

	// delta = -50001, strictly beyond the late window: dropped.
	s.Enqueue(now-50_001, []int32{1})
	if s.queue.Len() != 0 {
		t.Fatalf("queue.Len() = %d, want 0 (dropped)", s.queue.Len())
	}
	stats := s.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
}

func TestEnqueueKeepsBoundaryChunk(t *testing.T) {
	orig := nowFunc
	var now int64 = 10_000_000
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	s := New(20, &fakeSink{}, &fakeClock{})

	// delta = -50000 exactly: kept (not strictly less than -50000).
	s.Enqueue(now-50_000, []int32{1})
	if s.queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1 (kept)", s.queue.Len())
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	orig := nowFunc
	var now int64 = 10_000_000
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	s := New(20, &fakeSink{}, &fakeClock{}) // target=1, max=51
	for i := 0; i < s.maxQueueChunks; i++ {
		s.Enqueue(now+int64(i), []int32{1})
	}
	s.Enqueue(now+1000, []int32{1})

	stats := s.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1 once queue is full", stats.Dropped)
	}
}

func TestProcessQueueHoldsDuringBuffering(t *testing.T) {
	orig := nowFunc
	var now int64 = 10_000_000
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	sink := &fakeSink{}
	s := New(60, sink, &fakeClock{}) // target = 3 chunks

	s.Enqueue(now, []int32{1})
	s.processQueue()
	if sink.count() != 0 {
		t.Fatalf("sink played %d buffers, want 0 while still buffering", sink.count())
	}

	s.Enqueue(now, []int32{1})
	s.Enqueue(now, []int32{1})
	s.processQueue()
	if sink.count() != 3 {
		t.Errorf("sink played %d buffers, want 3 once buffer target reached", sink.count())
	}
}

func TestClearFlushesQueueAndReentersBuffering(t *testing.T) {
	orig := nowFunc
	var now int64 = 10_000_000
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	s := New(60, &fakeSink{}, &fakeClock{})
	s.buffering = false
	s.Enqueue(now, []int32{1})
	s.Enqueue(now, []int32{1})

	s.Clear()

	if s.QueueLen() != 0 {
		t.Errorf("QueueLen() = %d, want 0 after Clear", s.QueueLen())
	}
	if !s.IsBuffering() {
		t.Error("IsBuffering() = false, want true after Clear")
	}
}
