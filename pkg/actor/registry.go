package actor

import (
	"time"

	"github.com/google/uuid"
)

// registry 监督者私有的 Actor 注册表
//
// 只在监督者的 worker 上访问，不加锁。同时出现在 byWorker 和 workers 中的
// Actor 视为“正在被监督并运行”。
type registry struct {
	byWorker map[WorkerID]Supervised
	workers  map[uuid.UUID]WorkerID
	failures map[uuid.UUID][]time.Time

	maxErrorsCount  int
	maxErrorsPeriod time.Duration
	now             func() time.Time
}

func newRegistry(maxErrorsCount int, maxErrorsPeriod time.Duration, now func() time.Time) *registry {
	if now == nil {
		now = time.Now
	}
	return &registry{
		byWorker:        make(map[WorkerID]Supervised),
		workers:         make(map[uuid.UUID]WorkerID),
		failures:        make(map[uuid.UUID][]time.Time),
		maxErrorsCount:  maxErrorsCount,
		maxErrorsPeriod: maxErrorsPeriod,
		now:             now,
	}
}

func (r *registry) len() int {
	return len(r.workers)
}

// add 启动并登记 Actor，已登记时返回 false
func (r *registry) add(a Supervised) bool {
	if _, ok := r.workers[a.ID()]; ok {
		return false
	}
	r.bind(a, a.Start())
	return true
}

// remove 停止并注销 Actor，不等待其退出
func (r *registry) remove(a Supervised) bool {
	w, ok := r.workers[a.ID()]
	if !ok {
		return false
	}
	tracked := r.byWorker[w]
	r.forget(a.ID(), w)
	if tracked == nil {
		tracked = a
	}
	tracked.Stop()
	return true
}

// removeAll 注销所有 Actor，返回注销数量
func (r *registry) removeAll() int {
	n := 0
	for id, w := range r.workers {
		a := r.byWorker[w]
		r.forget(id, w)
		if a != nil {
			a.Stop()
		}
		n++
	}
	return n
}

// recordFailure 记录 worker 失败并按滑动窗口决定是否重启
//
// 返回对应的 Actor（未登记的 worker 返回 nil）。窗口内失败次数超过
// maxErrorsCount 时 Actor 被永久移除，并返回 *RestartLimitError。
func (r *registry) recordFailure(w WorkerID) (Supervised, error) {
	a, ok := r.byWorker[w]
	if !ok {
		return nil, nil
	}
	delete(r.byWorker, w)

	id := a.ID()
	now := r.now()
	fails := r.prune(append(r.failures[id], now), now)
	r.failures[id] = fails

	if len(fails) > r.maxErrorsCount {
		delete(r.workers, id)
		delete(r.failures, id)
		return a, &RestartLimitError{
			ActorID:   id,
			ActorName: a.Name(),
			Failures:  len(fails),
			MaxErrors: r.maxErrorsCount,
			Period:    r.maxErrorsPeriod,
		}
	}

	r.bind(a, a.Start())
	return a, nil
}

// restartAll 无条件重启所有已登记的 Actor
// 用于无法确定失败 worker 的情况；仍在运行的 Actor 保持原 worker
func (r *registry) restartAll() int {
	tracked := make([]Supervised, 0, len(r.workers))
	for id, w := range r.workers {
		if a, ok := r.byWorker[w]; ok {
			tracked = append(tracked, a)
		}
		delete(r.byWorker, w)
		delete(r.workers, id)
	}

	for _, a := range tracked {
		r.bind(a, a.Start())
	}
	return len(tracked)
}

// failureCount 返回窗口内的失败次数
func (r *registry) failureCount(id uuid.UUID) int {
	return len(r.prune(r.failures[id], r.now()))
}

// prune 丢弃早于窗口的失败记录，fails 按时间升序
func (r *registry) prune(fails []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-r.maxErrorsPeriod)
	i := 0
	for i < len(fails) && !fails[i].After(cutoff) {
		i++
	}
	return fails[i:]
}

func (r *registry) bind(a Supervised, w WorkerID) {
	r.workers[a.ID()] = w
	r.byWorker[w] = a
}

func (r *registry) forget(id uuid.UUID, w WorkerID) {
	delete(r.workers, id)
	delete(r.byWorker, w)
	delete(r.failures, id)
}
