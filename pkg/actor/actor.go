package actor

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout 普通 Actor 的默认接收超时
const DefaultTimeout = 10 * time.Millisecond

// Actor 拥有一个邮箱和一个专属 worker 的顺序执行单元
//
// 状态迁移: Created → Running → Stopped，停止后可以再次 Start（新的 worker，
// 相同的 ID 和邮箱）。Actor 内部状态只应在 worker 上修改，
// 也就是在 Call（见 Invoke / Method）或行为钩子中。
type Actor struct {
	id          uuid.UUID
	name        string
	mailbox     *Mailbox[Message]
	mailboxSize int
	timeout     time.Duration
	behavior    any

	ctx      context.Context
	logger   *slog.Logger
	detector *CrashDetector
	metrics  Metrics
	stats    *StatsCollector

	mu       sync.Mutex
	worker   WorkerID
	running  bool
	stopping bool
	done     chan struct{}
}

// Option Actor 配置选项
type Option func(*Actor)

// WithName 设置名称（用于日志和指标）
func WithName(name string) Option {
	return func(a *Actor) { a.name = name }
}

// WithTimeout 设置接收超时，超时后调用 OnIdle
// 传入 Forever 或 0 表示无限等待，此时不会调用 OnIdle
func WithTimeout(d time.Duration) Option {
	return func(a *Actor) {
		if d <= 0 {
			d = Forever
		}
		a.timeout = d
	}
}

// WithMailboxSize 设置邮箱容量，默认无界
func WithMailboxSize(size int) Option {
	return func(a *Actor) { a.mailboxSize = size }
}

// WithBehavior 设置行为钩子的实现者
// behavior 可以实现 BeforeLooper、AfterLooper、IdleHandler、
// MessageHandler、TimeoutProvider 中的任意几个
func WithBehavior(behavior any) Option {
	return func(a *Actor) { a.behavior = behavior }
}

// WithLogger 设置日志器
func WithLogger(logger *slog.Logger) Option {
	return func(a *Actor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCrashDetector 设置崩溃上报的目标
func WithCrashDetector(d *CrashDetector) Option {
	return func(a *Actor) {
		if d != nil {
			a.detector = d
		}
	}
}

// WithMetrics 设置指标实现
func WithMetrics(m Metrics) Option {
	return func(a *Actor) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithContext 设置 context，取消时循环按停止请求处理
func WithContext(ctx context.Context) Option {
	return func(a *Actor) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// New 创建 Actor，不会启动 worker
func New(opts ...Option) *Actor {
	a := &Actor{
		id:       uuid.New(),
		timeout:  DefaultTimeout,
		ctx:      context.Background(),
		logger:   slog.Default(),
		detector: DefaultCrashDetector,
		metrics:  NopMetrics(),
		stats:    NewStatsCollector(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.name == "" {
		a.name = "actor-" + a.id.String()[:8]
	}
	a.mailbox = NewMailbox[Message](a.mailboxSize)
	a.logger = a.logger.With("actor", a.name)
	return a
}

// ID 返回 Actor 的稳定标识
func (a *Actor) ID() uuid.UUID { return a.id }

// Name 返回名称
func (a *Actor) Name() string { return a.name }

// Timeout 返回配置的接收超时
func (a *Actor) Timeout() time.Duration { return a.timeout }

// Logger 返回带 actor 属性的日志器
func (a *Actor) Logger() *slog.Logger { return a.logger }

// Stats 返回统计快照
func (a *Actor) Stats() ActorStats { return a.stats.Stats() }

// Pending 返回邮箱中等待处理的消息数
func (a *Actor) Pending() int { return a.mailbox.Len() }

// Worker 返回当前（或最后一个）worker 的标识，从未启动时为 0
func (a *Actor) Worker() WorkerID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.worker
}

// IsAlive 检查 worker 是否运行中
func (a *Actor) IsAlive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Start 启动 worker 并返回其标识
// 已在运行时不做任何事，返回当前 worker
func (a *Actor) Start() WorkerID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return a.worker
	}

	w := nextWorkerID()
	done := make(chan struct{})
	a.worker = w
	a.running = true
	a.stopping = false
	a.done = done
	a.stats.RecordStart()

	go a.run(w, done)
	return w
}

// Stop 请求停止，不等待
// 停止信号排在已入队的消息之后，未运行或已请求停止时不做任何事
func (a *Actor) Stop() {
	a.mu.Lock()
	if !a.running || a.stopping {
		a.mu.Unlock()
		return
	}
	a.stopping = true
	w := a.worker
	a.mu.Unlock()

	a.mailbox.push(stopSignal{worker: w})
}

// Join 等待 worker 退出，timeout < 0 表示无限等待
// 返回 worker 是否已退出
func (a *Actor) Join(timeout time.Duration) bool {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()

	if done == nil {
		return true
	}
	if timeout < 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Send 投递消息，由行为的 OnMessage 处理
func (a *Actor) Send(msg Message) error {
	return a.mailbox.Send(msg)
}

// run worker 主函数
func (a *Actor) run(w WorkerID, done chan struct{}) {
	defer func() {
		var crash *Crash
		if r := recover(); r != nil {
			stack := debug.Stack()
			a.stats.RecordCrash(&PanicError{Value: r, Stack: stack})
			a.metrics.WorkerCrashed(a.name)
			a.logger.Error("actor worker crashed",
				"worker", w,
				"error", r,
				"stack", string(stack))
			crash = &Crash{Worker: w, Known: true, Recovered: r, Stack: stack}
		}

		a.afterLoop()
		a.finish(w, done)

		// 先标记退出再上报，监督者收到通知时可以立即重启
		if crash != nil {
			a.detector.Report(*crash)
		}
	}()

	a.logger.Debug("actor worker started", "worker", w)
	if h, ok := a.behavior.(BeforeLooper); ok {
		h.BeforeLoop()
	}
	a.loop(w)
	a.logger.Debug("actor worker stopped", "worker", w)
}

// loop 消息循环，直到收到发给 w 的停止信号或被中断
func (a *Actor) loop(w WorkerID) {
	for {
		if err := a.ctx.Err(); err != nil {
			a.logger.Info("actor interrupted, stopping", "reason", err)
			return
		}

		msg, err := a.mailbox.Receive(a.ctx, a.pollTimeout())
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				if h, ok := a.behavior.(IdleHandler); ok {
					h.OnIdle()
				}
				continue
			}
			a.logger.Info("actor interrupted, stopping", "reason", err)
			return
		}

		if stop, ok := msg.(stopSignal); ok {
			if stop.worker == w {
				return
			}
			// 上一个 worker 未消费的停止信号
			continue
		}
		a.dispatch(msg)
	}
}

// dispatch 处理单条消息
func (a *Actor) dispatch(msg Message) {
	a.stats.RecordReceived()
	start := time.Now()
	success := true

	switch m := msg.(type) {
	case invoker:
		if err := m.invoke(); err != nil {
			success = false
			a.stats.RecordError(err)
			a.logger.Debug("call failed", "kind", m.Kind(), "error", err)
		}
	default:
		if h, ok := a.behavior.(MessageHandler); ok {
			h.OnMessage(m)
		}
	}

	latency := time.Since(start)
	a.stats.RecordHandled(latency)
	a.metrics.MessageDuration(a.name, msg.Kind(), latency)
	a.metrics.MessageProcessed(a.name, msg.Kind(), success)
}

func (a *Actor) pollTimeout() time.Duration {
	if p, ok := a.behavior.(TimeoutProvider); ok {
		return p.PollTimeout()
	}
	return a.timeout
}

// afterLoop 执行收尾钩子，钩子自身的 panic 只记录日志
func (a *Actor) afterLoop() {
	h, ok := a.behavior.(AfterLooper)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("after-loop hook panicked", "error", r)
		}
	}()
	h.AfterLoop()
}

func (a *Actor) finish(w WorkerID, done chan struct{}) {
	a.mu.Lock()
	if a.worker == w {
		a.running = false
		a.stopping = false
	}
	a.mu.Unlock()
	close(done)
}
