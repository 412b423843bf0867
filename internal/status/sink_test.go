package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects events, optionally blocking until released.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	gate   chan struct{}
}

func (r *recordingSink) Notify(ev Event) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}

	Multi{a, b}.Notify(Progress("ws", "hello"))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestAsyncSinkDeliversInOrder(t *testing.T) {
	inner := &recordingSink{}
	s := NewAsyncSink(inner, 16)

	s.Notify(Progress("ws", "one"))
	s.Notify(Progress("ws", "two"))
	s.Notify(Terminal("ws", "done"))
	s.Close()

	require.Len(t, inner.events, 3)
	assert.Equal(t, "one", inner.events[0].Message)
	assert.Equal(t, "two", inner.events[1].Message)
	assert.Equal(t, KindTerminal, inner.events[2].Kind)
}

func TestAsyncSinkNeverBlocksOnSlowConsumer(t *testing.T) {
	inner := &recordingSink{gate: make(chan struct{})}
	s := NewAsyncSink(inner, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			s.Notify(Progress("ws", "spam"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stalled consumer")
	}

	close(inner.gate)
	s.Close()
	assert.Positive(t, s.Dropped(), "overflow events are dropped, not queued unboundedly")
}
