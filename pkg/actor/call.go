package actor

import (
	"fmt"
	"runtime/debug"
)

// invoker 是 Actor 循环可直接执行的消息
type invoker interface {
	Message
	invoke() error
}

// Call 包装一次延迟调用及其结果 Future
//
// 由 Actor 的 worker 执行恰好一次。调用返回的错误或发生的 panic
// 都通过 Future 交给调用方，不会中断 Actor 的消息循环。
type Call[T any] struct {
	name   string
	fn     func() (T, error)
	future *Future[T]
}

// NewCall 创建调用消息
func NewCall[T any](name string, fn func() (T, error)) *Call[T] {
	if name == "" {
		name = "call"
	}
	return &Call[T]{
		name:   name,
		fn:     fn,
		future: NewFuture[T](),
	}
}

// Kind 实现 Message 接口
func (c *Call[T]) Kind() string { return c.name }

// Future 返回调用结果
func (c *Call[T]) Future() *Future[T] { return c.future }

// Invoke 在当前 goroutine 上同步执行调用并写入结果
// 返回调用失败（错误或 panic），仅用于统计
func (c *Call[T]) Invoke() error {
	return c.invoke()
}

func (c *Call[T]) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
			c.future.Reject(err)
		}
	}()

	if c.fn == nil {
		err = fmt.Errorf("call %s: nil function", c.name)
		c.future.Reject(err)
		return err
	}

	v, err := c.fn()
	if err != nil {
		c.future.Reject(err)
		return err
	}
	c.future.Resolve(v)
	return nil
}
