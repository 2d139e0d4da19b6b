package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(func() { count.Add(1) }))
	}
	p.Wait()
	assert.Equal(t, int64(100), count.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p := New(1)
	defer p.Close()

	var ran atomic.Bool
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { ran.Store(true) }))
	p.Wait()
	assert.True(t, ran.Load())
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := New(0)
	p.Close()
	p.Close()
	assert.ErrorIs(t, p.Submit(func() {}), ErrClosed)
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	p := New(2)
	var count atomic.Int64
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(func() { count.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int64(20), count.Load())
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestSubmitDoesNotWaitForBusyWorkers(t *testing.T) {
	p := New(1)
	defer p.Close()

	gate := make(chan struct{})
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < 10; i++ {
			assert.NoError(t, p.Submit(func() { <-gate }))
		}
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit waited on a busy worker")
	}
	close(gate)
	p.Wait()
}

func TestTaskMaySubmitWhileClosing(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
		// Either outcome is fine depending on how far Close got.
		_ = p.Submit(func() {})
	}))
	<-started

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	close(release)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked with a submitting task")
	}
}
