package actor

// ═══════════════════════════════════════════════════════════════════════════
// 方法到调用的包装
// ═══════════════════════════════════════════════════════════════════════════
//
// 把普通方法变成在 Actor worker 上串行执行的调用。包装后的函数只负责入队，
// 立即返回 Future，由调用方决定何时等待。
//
// 用法示例:
//
//	type Counter struct {
//		*actor.Actor
//		n   int
//		Add func(delta int) *actor.Future[int]
//	}
//
//	c := &Counter{}
//	c.Actor = actor.New(actor.WithName("counter"))
//	c.Add = actor.Method(c.Actor, func(delta int) (int, error) {
//		c.n += delta
//		return c.n, nil
//	})
//
//	n, err := c.Add(1).Await(time.Second)

// Invoke 把 fn 作为调用投递到 Actor 的邮箱
// 邮箱已满时返回的 Future 带 ErrMailboxFull
func Invoke[R any](a *Actor, fn func() (R, error)) *Future[R] {
	return InvokeNamed(a, "call", fn)
}

// InvokeNamed 同 Invoke，name 作为消息类型用于日志和指标
func InvokeNamed[R any](a *Actor, name string, fn func() (R, error)) *Future[R] {
	call := NewCall(name, fn)
	if err := a.mailbox.Send(call); err != nil {
		call.future.Reject(err)
	}
	return call.future
}

// Exec 投递一个只返回错误的调用
func Exec(a *Actor, fn func() error) *Future[struct{}] {
	return Invoke(a, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Method 包装单参数方法
func Method[A, R any](a *Actor, fn func(A) (R, error)) func(A) *Future[R] {
	return func(arg A) *Future[R] {
		return Invoke(a, func() (R, error) {
			return fn(arg)
		})
	}
}

// Method2 包装双参数方法
func Method2[A, B, R any](a *Actor, fn func(A, B) (R, error)) func(A, B) *Future[R] {
	return func(x A, y B) *Future[R] {
		return Invoke(a, func() (R, error) {
			return fn(x, y)
		})
	}
}
