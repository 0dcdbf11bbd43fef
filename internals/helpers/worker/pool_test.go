package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := New(3, time.Second)

	var n atomic.Int32
	for i := 0; i < 20; i++ {
		p.Submit("count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
	}
	p.Wait()

	assert.Equal(t, int32(20), n.Load())
}

func TestPoolSwallowsErrorsAndPanics(t *testing.T) {
	p := New(2, time.Second)

	var ran atomic.Int32
	p.Submit("fails", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	})
	p.Submit("panics", func(ctx context.Context) error {
		ran.Add(1)
		panic("kaboom")
	})
	p.Submit("ok", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	p.Wait()

	assert.Equal(t, int32(3), ran.Load())
}

func TestPoolJobContextHasDeadline(t *testing.T) {
	p := New(1, 50*time.Millisecond)

	var hadDeadline atomic.Bool
	p.Submit("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		return nil
	})
	p.Wait()

	assert.True(t, hadDeadline.Load())
}

func TestShutdownDropsLateJobs(t *testing.T) {
	p := New(1, time.Second)
	require.NoError(t, p.Shutdown(context.Background()))

	var ran atomic.Bool
	p.Submit("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	p.Wait()

	assert.False(t, ran.Load())
}

func TestSubmitNeverBlocksWhenSaturated(t *testing.T) {
	p := New(1, time.Second)
	p.maxQueued = 1

	release := make(chan struct{})
	var ran atomic.Int32
	slow := func(ctx context.Context) error {
		<-release
		ran.Add(1)
		return nil
	}

	submitted := make(chan struct{})
	go func() {
		p.Submit("running", slow)
		p.Submit("queued", slow)
		p.Submit("dropped", slow)
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a saturated pool")
	}

	close(release)
	p.Wait()
	assert.Equal(t, int32(2), ran.Load())
}

func TestSubmitRacingShutdown(t *testing.T) {
	p := New(2, time.Second)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Submit("race", func(ctx context.Context) error {
					ran.Add(1)
					return nil
				})
			}
		}()
	}
	require.NoError(t, p.Shutdown(context.Background()))
	wg.Wait()
	p.Wait()

	// nothing runs after Shutdown has drained
	n := ran.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, ran.Load())
}
