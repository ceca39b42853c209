package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolveIsReadManyTimes(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(42)

	for i := 0; i < 3; i++ {
		v, err := f.Await(time.Second)
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		v, err = f.Poll()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}

	v, err := f.Await(0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFuture_ConcurrentReaders(t *testing.T) {
	f := NewFuture[string]()

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Go(func() {
			v, err := f.Await(Forever)
			if err == nil {
				results[i] = v
			}
		})
	}

	time.Sleep(10 * time.Millisecond)
	f.Resolve("done")
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, "done", v)
	}
}

func TestFuture_PollNotReady(t *testing.T) {
	f := NewFuture[int]()
	_, err := f.Poll()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestFuture_AwaitTimeoutThenResolve(t *testing.T) {
	f := NewFuture[int]()

	start := time.Now()
	_, err := f.Await(30 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// 超时后 Future 仍然有效
	f.Resolve(7)
	v, err := f.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFuture_Reject(t *testing.T) {
	boom := errors.New("boom")
	f := NewFuture[int]()
	f.Reject(boom)

	_, err := f.Await(time.Second)
	assert.ErrorIs(t, err, boom)
	_, err = f.Poll()
	assert.ErrorIs(t, err, boom)
}

func TestFuture_FirstWriteWins(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(1)
	f.Resolve(2)
	f.Reject(errors.New("late"))

	v, err := f.Poll()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_Wait(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.Resolve(3)
	v, err := f.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestCall_Invoke(t *testing.T) {
	call := NewCall("sum", func() (int, error) { return 1 + 2, nil })
	assert.Equal(t, "sum", call.Kind())
	require.NoError(t, call.Invoke())

	v, err := call.Future().Poll()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCall_InvokeCapturesPanic(t *testing.T) {
	call := NewCall("div", func() (int, error) {
		var zero int
		return 1 / zero, nil
	})

	err := call.Invoke()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.NotEmpty(t, pe.Stack)

	_, err = call.Future().Poll()
	assert.ErrorAs(t, err, &pe)
}
