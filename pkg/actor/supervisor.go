package actor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// HeartbeatSink 存活标记的写入目标
// 只关心写入动作本身（例如文件的修改时间），不关心内容
type HeartbeatSink interface {
	Beat() error
}

// SupervisorConfig 监督者配置
type SupervisorConfig struct {
	// Name 监督者名称
	Name string
	// MaxErrorsCount 时间窗口内允许的最大失败次数，超过后 Actor 被移除
	// 0 表示不重启，第一次失败即移除；负数使用默认值
	MaxErrorsCount int
	// MaxErrorsPeriod 失败计数的滑动窗口，<= 0 时使用默认值
	MaxErrorsPeriod time.Duration
	// HeartbeatPeriod 心跳间隔
	HeartbeatPeriod time.Duration
	// Heartbeat 心跳目标，nil 表示不写心跳
	Heartbeat HeartbeatSink
	// CrashDetector 崩溃钩子，被监督的 Actor 必须向同一个钩子上报
	CrashDetector *CrashDetector
	// Logger 自定义日志器
	Logger *slog.Logger
	// Metrics 指标实现
	Metrics Metrics
	// Context 取消时监督者停止
	Context context.Context

	// clock 测试用时钟
	clock func() time.Time
}

// DefaultSupervisorConfig 默认监督者配置
// 1 秒内最多 10 次失败，心跳间隔 60 秒
func DefaultSupervisorConfig() *SupervisorConfig {
	return &SupervisorConfig{
		Name:            "supervisor",
		MaxErrorsCount:  10,
		MaxErrorsPeriod: time.Second,
		HeartbeatPeriod: time.Minute,
		CrashDetector:   DefaultCrashDetector,
	}
}

// ============== 监督者消息 ==============

// supervisorMessage 监督者邮箱中的管理消息
type supervisorMessage interface {
	Message
	supervisorMessage()
}

// addActor 登记并启动 Actor
type addActor struct {
	actor  Supervised
	future *Future[struct{}]
}

func (*addActor) Kind() string       { return "supervisor.add_actor" }
func (*addActor) supervisorMessage() {}

// removeActor 停止并注销 Actor
type removeActor struct {
	actor  Supervised
	future *Future[struct{}]
}

func (*removeActor) Kind() string       { return "supervisor.remove_actor" }
func (*removeActor) supervisorMessage() {}

// workerFailed 某个 worker 未捕获的失败
type workerFailed struct {
	crash Crash
}

func (*workerFailed) Kind() string       { return "supervisor.worker_failed" }
func (*workerFailed) supervisorMessage() {}

// ============== 监督者 ==============

// Supervisor 启动、监控、重启一组 Actor 的 Actor
//
// 所有注册表修改都经过监督者自己的邮箱，在它的 worker 上串行执行。
// 被监督的 Actor 崩溃时，崩溃钩子把通知放入监督者邮箱；窗口内失败次数
// 超过上限的 Actor 被移除，同时监督者永久变为不健康并停止写心跳。
type Supervisor struct {
	*Actor

	registry *registry
	sink     HeartbeatSink
	period   time.Duration
	now      func() time.Time

	healthy atomic.Bool

	// 以下字段只在监督者 worker 上访问
	lastBeat time.Time
	restore  func()
}

// NewSupervisor 创建监督者，cfg 为 nil 时使用默认配置
func NewSupervisor(cfg *SupervisorConfig) *Supervisor {
	def := DefaultSupervisorConfig()
	if cfg == nil {
		cfg = def
	}

	name := cfg.Name
	if name == "" {
		name = def.Name
	}
	period := cfg.HeartbeatPeriod
	if period <= 0 {
		period = def.HeartbeatPeriod
	}
	maxErrorsCount := cfg.MaxErrorsCount
	if maxErrorsCount < 0 {
		maxErrorsCount = def.MaxErrorsCount
	}
	maxErrorsPeriod := cfg.MaxErrorsPeriod
	if maxErrorsPeriod <= 0 {
		maxErrorsPeriod = def.MaxErrorsPeriod
	}
	now := cfg.clock
	if now == nil {
		now = time.Now
	}

	s := &Supervisor{
		sink:   cfg.Heartbeat,
		period: period,
		now:    now,
	}
	s.healthy.Store(true)
	s.registry = newRegistry(maxErrorsCount, maxErrorsPeriod, now)
	s.Actor = New(
		WithName(name),
		WithTimeout(period),
		WithBehavior(&supervisorLoop{s: s}),
		WithLogger(cfg.Logger),
		WithCrashDetector(cfg.CrashDetector),
		WithMetrics(cfg.Metrics),
		WithContext(cfg.Context),
	)
	return s
}

// Add 登记 Actor 并在监督者 worker 上启动它
// 监督者未运行时请求会排队，启动后处理
func (s *Supervisor) Add(a Supervised) *Future[struct{}] {
	task := &addActor{actor: a, future: NewFuture[struct{}]()}
	s.mailbox.push(task)
	return task.future
}

// Remove 停止并注销 Actor，不等待其退出
func (s *Supervisor) Remove(a Supervised) *Future[struct{}] {
	task := &removeActor{actor: a, future: NewFuture[struct{}]()}
	s.mailbox.push(task)
	return task.future
}

// Count 返回当前被监督的 Actor 数量
func (s *Supervisor) Count() *Future[int] {
	return InvokeNamed(s.Actor, "supervisor.count", func() (int, error) {
		return s.registry.len(), nil
	})
}

// Failures 返回 Actor 在当前窗口内的失败次数
func (s *Supervisor) Failures(a Supervised) *Future[int] {
	return InvokeNamed(s.Actor, "supervisor.failures", func() (int, error) {
		return s.registry.failureCount(a.ID()), nil
	})
}

// Healthy 监督者是否健康，可在任意 goroutine 调用
// 一旦变为 false 不会恢复
func (s *Supervisor) Healthy() bool {
	return s.healthy.Load()
}

// heartbeatTimeout 根据心跳状态计算下一次接收的超时
func (s *Supervisor) heartbeatTimeout() time.Duration {
	if s.sink == nil || !s.healthy.Load() {
		return Forever
	}
	if s.lastBeat.IsZero() {
		return 0
	}
	return max(0, s.period-s.now().Sub(s.lastBeat))
}

// heartbeat 健康时写入存活标记
func (s *Supervisor) heartbeat() {
	if s.sink == nil || !s.healthy.Load() {
		return
	}

	s.lastBeat = s.now()
	if err := s.sink.Beat(); err != nil {
		s.metrics.HeartbeatWritten(false)
		s.logger.Error("heartbeat write failed", "error", err)
		return
	}
	s.metrics.HeartbeatWritten(true)
	s.logger.Debug("heartbeat written")
}

func (s *Supervisor) onAdd(task *addActor) {
	if s.registry.add(task.actor) {
		s.logger.Info("actor added",
			"child", task.actor.Name(),
			"child_id", task.actor.ID())
		s.metrics.SupervisedActors(s.registry.len())
	}
	task.future.Resolve(struct{}{})
}

func (s *Supervisor) onRemove(task *removeActor) {
	if s.registry.remove(task.actor) {
		s.logger.Info("actor removed",
			"child", task.actor.Name(),
			"child_id", task.actor.ID())
		s.metrics.SupervisedActors(s.registry.len())
	}
	task.future.Resolve(struct{}{})
}

func (s *Supervisor) onWorkerFailed(msg *workerFailed) {
	if !msg.crash.Known {
		n := s.registry.restartAll()
		s.logger.Warn("failure of unidentified worker, restarting all actors",
			"actors", n,
			"error", msg.crash.Recovered)
		return
	}

	a, err := s.registry.recordFailure(msg.crash.Worker)
	if a == nil {
		return
	}
	if err != nil {
		s.logger.Error(err.Error(),
			"child", a.Name(),
			"child_id", a.ID(),
			"max_errors_count", s.registry.maxErrorsCount,
			"max_errors_period", s.registry.maxErrorsPeriod)
		s.healthy.Store(false)
		s.metrics.ActorDropped(a.Name())
		s.metrics.SupervisorHealthy(false)
		s.metrics.SupervisedActors(s.registry.len())
		return
	}

	s.logger.Info("actor restarted",
		"child", a.Name(),
		"child_id", a.ID(),
		"failures", s.registry.failureCount(a.ID()))
	s.metrics.ActorRestarted(a.Name())
}

// ============== 循环钩子 ==============

// supervisorLoop 监督者的行为钩子
// 不直接暴露在 Supervisor 上，避免外部绕过邮箱调用
type supervisorLoop struct {
	s *Supervisor
}

func (l *supervisorLoop) BeforeLoop() {
	s := l.s
	s.restore = s.detector.Install(func(c Crash) {
		s.mailbox.push(&workerFailed{crash: c})
	})
	s.metrics.SupervisorHealthy(s.healthy.Load())
	s.logger.Info("supervisor started")
}

func (l *supervisorLoop) AfterLoop() {
	s := l.s
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
	s.registry.removeAll()
	s.metrics.SupervisedActors(0)
	s.logger.Info("supervisor stopped")
}

func (l *supervisorLoop) OnIdle() {
	l.s.heartbeat()
}

func (l *supervisorLoop) PollTimeout() time.Duration {
	return l.s.heartbeatTimeout()
}

func (l *supervisorLoop) OnMessage(msg Message) {
	m, ok := msg.(supervisorMessage)
	if !ok {
		l.s.logger.Warn("unexpected supervisor message", "kind", msg.Kind())
		return
	}

	switch m := m.(type) {
	case *addActor:
		l.s.onAdd(m)
	case *removeActor:
		l.s.onRemove(m)
	case *workerFailed:
		l.s.onWorkerFailed(m)
	}
}
