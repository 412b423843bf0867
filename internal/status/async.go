package status

import (
	"log"
	"sync"
)

// AsyncSink decouples the core from slow consumers. Notify never blocks:
// events queue into a buffered channel and a single goroutine drains them
// to the wrapped sink. When the buffer is full the event is dropped;
// a stalled consumer must not stall the build-fix cycle.
type AsyncSink struct {
	inner   Sink
	ch      chan Event
	done    chan struct{}
	dropped int
	mu      sync.Mutex
	once    sync.Once
}

// NewAsyncSink wraps a sink with a non-blocking buffer.
func NewAsyncSink(inner Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 64
	}
	s := &AsyncSink{
		inner: inner,
		ch:    make(chan Event, buffer),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *AsyncSink) drain() {
	defer close(s.done)
	for ev := range s.ch {
		s.inner.Notify(ev)
	}
}

// Notify implements Sink. It never blocks.
func (s *AsyncSink) Notify(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (s *AsyncSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes queued events and stops the drain goroutine.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	s.mu.Lock()
	dropped := s.dropped
	s.mu.Unlock()
	if dropped > 0 {
		log.Printf("[status] dropped %d event(s) for slow consumer", dropped)
	}
}
