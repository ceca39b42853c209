package main

import (
	"fmt"
	"log/slog"

	"github.com/lwmacct/251216-go-pkg-actor/pkg/actor"
)

// chaosMessage 让 worker 在消息循环中崩溃
type chaosMessage struct{}

func (chaosMessage) Kind() string { return "actord.chaos" }

// worker 演示用的计数 Actor
// 所有状态只在自己的 worker 上修改
type worker struct {
	*actor.Actor

	total int

	// Incr 累加并返回新的总数
	Incr func(delta int) *actor.Future[int]
	// Total 返回当前总数
	Total func() *actor.Future[int]
}

func newWorker(name string, opts ...actor.Option) *worker {
	w := &worker{}
	w.Actor = actor.New(append(opts,
		actor.WithName(name),
		actor.WithBehavior(w),
	)...)

	w.Incr = actor.Method(w.Actor, func(delta int) (int, error) {
		w.total += delta
		return w.total, nil
	})
	w.Total = func() *actor.Future[int] {
		return actor.Invoke(w.Actor, func() (int, error) {
			return w.total, nil
		})
	}
	return w
}

func (w *worker) BeforeLoop() {
	w.Logger().Debug("worker loop starting", slog.Int("total", w.total))
}

func (w *worker) OnMessage(msg actor.Message) {
	switch msg.(type) {
	case chaosMessage:
		panic(fmt.Sprintf("chaos injected into %s", w.Name()))
	default:
		w.Logger().Warn("unexpected message", "kind", msg.Kind())
	}
}
