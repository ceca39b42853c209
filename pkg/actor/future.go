package actor

import (
	"context"
	"sync"
	"time"
)

// Future 单槽结果单元
//
// 只允许写入一次（由调用方保证），可以被多个读者读取任意次，
// 所有读者看到同一个结果。
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewFuture 创建未完成的 Future
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve 写入结果值
func (f *Future[T]) Resolve(v T) {
	f.complete(v, nil)
}

// Reject 写入失败
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done 在 Future 完成时关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await 等待结果，timeout < 0 表示无限等待
// 超时返回 ErrTimeout，之后仍可再次等待
func (f *Future[T]) Await(timeout time.Duration) (T, error) {
	if timeout < 0 {
		<-f.done
		return f.value, f.err
	}
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero T
		return zero, timeoutError(timeout)
	}
}

// Wait 带 context 的等待
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll 非阻塞读取，未完成时返回 ErrNotReady
func (f *Future[T]) Poll() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, ErrNotReady
	}
}
