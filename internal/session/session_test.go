package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer(t *testing.T) {
	var s Sequencer
	assert.False(t, s.IsCurrent(0))

	a := s.Next()
	assert.True(t, s.IsCurrent(a))

	b := s.Next()
	assert.False(t, s.IsCurrent(a))
	assert.True(t, s.IsCurrent(b))
	assert.Equal(t, b, s.Latest())
}

func TestSequencer_Concurrent(t *testing.T) {
	var s Sequencer
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, Ticket(50), s.Latest())
}

func TestDebouncer_RunsLastOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	var got atomic.Int32
	done := make(chan struct{}, 1)

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(context.Background(), func(ctx context.Context, _ Ticket) {
			calls.Add(1)
			got.Store(n)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), got.Load())
}

func TestDebouncer_TriggerCancelsRunningContext(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	started := make(chan context.Context, 1)

	first := d.Trigger(context.Background(), func(ctx context.Context, _ Ticket) {
		started <- ctx
		<-ctx.Done()
	})

	var ctx context.Context
	select {
	case ctx = <-started:
	case <-time.After(time.Second):
		t.Fatal("first call never ran")
	}

	second := d.Trigger(context.Background(), func(context.Context, Ticket) {})
	require.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, time.Millisecond)
	assert.False(t, d.IsCurrent(first))
	assert.True(t, d.IsCurrent(second))
	d.Stop()
	assert.False(t, d.IsCurrent(second))
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(context.Background(), func(context.Context, Ticket) { calls.Add(1) })
	d.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
