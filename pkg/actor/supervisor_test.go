package actor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSink 记录心跳次数
type countingSink struct {
	beats atomic.Int32
	fail  atomic.Bool
}

func (s *countingSink) Beat() error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	s.beats.Add(1)
	return nil
}

type supervisorFixture struct {
	sup      *Supervisor
	detector *CrashDetector
	sink     *countingSink
}

func newSupervisorFixture(t *testing.T, maxErrors int, heartbeat time.Duration) *supervisorFixture {
	t.Helper()

	f := &supervisorFixture{
		detector: NewCrashDetector(),
		sink:     &countingSink{},
	}
	cfg := DefaultSupervisorConfig()
	cfg.MaxErrorsCount = maxErrors
	cfg.MaxErrorsPeriod = time.Minute
	cfg.HeartbeatPeriod = heartbeat
	cfg.Heartbeat = f.sink
	cfg.CrashDetector = f.detector
	cfg.Logger = discardLogger()

	f.sup = NewSupervisor(cfg)
	t.Cleanup(func() {
		f.sup.Stop()
		f.sup.Join(time.Second)
	})
	return f
}

// crash 让 Actor 崩溃并等待监督者处理
func crashAndWaitRestart(t *testing.T, c *calculator) {
	t.Helper()
	prev := c.Worker()
	require.NoError(t, c.Send(crashMessage{}))
	require.Eventually(t, func() bool {
		return c.Worker() != prev && c.IsAlive()
	}, time.Second, 2*time.Millisecond, "actor was not restarted")
}

func awaitOK[T any](t *testing.T, f *Future[T]) T {
	t.Helper()
	v, err := f.Await(time.Second)
	require.NoError(t, err)
	return v
}

func TestSupervisor_AddStartsActors(t *testing.T) {
	f := newSupervisorFixture(t, 5, time.Minute)
	c1 := newCalculator(f.detector)
	c2 := newCalculator(f.detector)

	// 监督者启动前的 Add 会排队
	added1 := f.sup.Add(c1)
	added2 := f.sup.Add(c2)
	assert.False(t, c1.IsAlive())

	f.sup.Start()
	awaitOK(t, added1)
	awaitOK(t, added2)

	assert.True(t, c1.IsAlive())
	assert.True(t, c2.IsAlive())
	assert.Equal(t, 2, awaitOK(t, f.sup.Count()))
	assert.Equal(t, 3, awaitOK(t, c1.Add(1, 2)))

	// 重复添加无副作用
	awaitOK(t, f.sup.Add(c1))
	assert.Equal(t, 2, awaitOK(t, f.sup.Count()))
	assert.Equal(t, int64(1), c1.Stats().Starts)
}

func TestSupervisor_Remove(t *testing.T) {
	f := newSupervisorFixture(t, 5, time.Minute)
	c := newCalculator(f.detector)
	f.sup.Start()
	awaitOK(t, f.sup.Add(c))

	awaitOK(t, f.sup.Remove(c))
	require.True(t, c.Join(time.Second))
	assert.False(t, c.IsAlive())
	assert.Zero(t, awaitOK(t, f.sup.Count()))

	// 移除后的崩溃不会触发重启
	c.Start()
	defer c.Stop()
	w := c.Worker()
	require.NoError(t, c.Send(crashMessage{}))
	require.True(t, c.Join(time.Second))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, w, c.Worker())
	assert.False(t, c.IsAlive())
	assert.True(t, f.sup.Healthy())
}

func TestSupervisor_RestartsCrashedActor(t *testing.T) {
	f := newSupervisorFixture(t, 5, time.Minute)
	c1 := newCalculator(f.detector)
	c2 := newCalculator(f.detector)
	added1, added2 := f.sup.Add(c1), f.sup.Add(c2)
	f.sup.Start()
	awaitOK(t, added1)
	awaitOK(t, added2)

	for i := 0; i < 3; i++ {
		crashAndWaitRestart(t, c1)
	}

	assert.Equal(t, 3, awaitOK(t, c1.Add(1, 2)))
	assert.Equal(t, 8, awaitOK(t, c2.Add(4, 4)))
	assert.Equal(t, 3, awaitOK(t, f.sup.Failures(c1)))
	assert.Equal(t, 2, awaitOK(t, f.sup.Count()))
	assert.True(t, f.sup.Healthy())
}

func TestSupervisor_RestartLimitExceeded(t *testing.T) {
	f := newSupervisorFixture(t, 2, 10*time.Millisecond)
	c1 := newCalculator(f.detector)
	c2 := newCalculator(f.detector)
	added1, added2 := f.sup.Add(c1), f.sup.Add(c2)
	f.sup.Start()
	awaitOK(t, added1)
	awaitOK(t, added2)

	require.Eventually(t, func() bool {
		return f.sink.beats.Load() >= 1
	}, time.Second, 2*time.Millisecond)

	crashAndWaitRestart(t, c1)
	crashAndWaitRestart(t, c1)

	require.NoError(t, c1.Send(crashMessage{}))
	require.Eventually(t, func() bool {
		return !f.sup.Healthy()
	}, time.Second, 2*time.Millisecond)

	assert.False(t, c1.IsAlive())
	assert.Equal(t, 1, awaitOK(t, f.sup.Count()))
	assert.Zero(t, awaitOK(t, f.sup.Failures(c1)))

	// 不健康后停止写心跳
	beats := f.sink.beats.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, beats, f.sink.beats.Load())

	// 其他 Actor 仍然可用
	assert.Equal(t, 8, awaitOK(t, c2.Add(4, 4)))
}

func TestSupervisor_ZeroValueConfigKeepsRestartLimit(t *testing.T) {
	detector := NewCrashDetector()
	sup := NewSupervisor(&SupervisorConfig{
		CrashDetector: detector,
		Logger:        discardLogger(),
	})
	t.Cleanup(func() {
		sup.Stop()
		sup.Join(time.Second)
	})

	assert.Equal(t, 0, sup.registry.maxErrorsCount)
	assert.Equal(t, time.Second, sup.registry.maxErrorsPeriod)

	c := newCalculator(detector)
	sup.Start()
	awaitOK(t, sup.Add(c))

	// 上限为 0：第一次失败即移除
	require.NoError(t, c.Send(crashMessage{}))
	require.Eventually(t, func() bool {
		return !sup.Healthy()
	}, time.Second, 2*time.Millisecond)

	assert.False(t, c.IsAlive())
	assert.Zero(t, awaitOK(t, sup.Count()))
}

func TestSupervisor_ZeroPeriodUsesDefaultWindow(t *testing.T) {
	detector := NewCrashDetector()
	clock := newFakeClock()
	cfg := &SupervisorConfig{
		MaxErrorsCount: 2,
		CrashDetector:  detector,
		Logger:         discardLogger(),
		clock:          clock.Now,
	}
	sup := NewSupervisor(cfg)
	t.Cleanup(func() {
		sup.Stop()
		sup.Join(time.Second)
	})
	assert.Equal(t, time.Second, sup.registry.maxErrorsPeriod)

	c := newCalculator(detector)
	sup.Start()
	awaitOK(t, sup.Add(c))

	crashAndWaitRestart(t, c)
	crashAndWaitRestart(t, c)
	assert.Equal(t, 2, awaitOK(t, sup.Failures(c)))

	require.NoError(t, c.Send(crashMessage{}))
	require.Eventually(t, func() bool {
		return !sup.Healthy()
	}, time.Second, 2*time.Millisecond)
	assert.Zero(t, awaitOK(t, sup.Count()))
}

func TestNewSupervisor_NegativeMaxErrorsUsesDefault(t *testing.T) {
	sup := NewSupervisor(&SupervisorConfig{MaxErrorsCount: -1, Logger: discardLogger()})
	assert.Equal(t, 10, sup.registry.maxErrorsCount)
	assert.Equal(t, time.Second, sup.registry.maxErrorsPeriod)
}

func TestSupervisor_UnidentifiedFailureRestartsAll(t *testing.T) {
	f := newSupervisorFixture(t, 5, time.Minute)
	c1 := newCalculator(f.detector)
	c2 := newCalculator(f.detector)
	f.sup.Start()
	awaitOK(t, f.sup.Add(c1))
	awaitOK(t, f.sup.Add(c2))

	// c1 停止但仍在注册表中，c2 保持运行
	c1.Stop()
	require.True(t, c1.Join(time.Second))
	w2 := c2.Worker()

	f.detector.Go(func() { panic("detached goroutine") })

	require.Eventually(t, c1.IsAlive, time.Second, 2*time.Millisecond)
	assert.Equal(t, w2, c2.Worker())
	assert.Equal(t, 2, awaitOK(t, f.sup.Count()))
	assert.True(t, f.sup.Healthy())
}

func TestSupervisor_HeartbeatPeriod(t *testing.T) {
	f := newSupervisorFixture(t, 5, 10*time.Millisecond)
	f.sup.Start()

	// 启动后立即写一次，之后每个周期至少一次
	require.Eventually(t, func() bool {
		return f.sink.beats.Load() >= 1
	}, 100*time.Millisecond, time.Millisecond)
	require.Eventually(t, func() bool {
		return f.sink.beats.Load() >= 5
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisor_HeartbeatFailureIsNotFatal(t *testing.T) {
	f := newSupervisorFixture(t, 5, 10*time.Millisecond)
	f.sink.fail.Store(true)
	f.sup.Start()

	time.Sleep(30 * time.Millisecond)
	assert.True(t, f.sup.IsAlive())
	assert.True(t, f.sup.Healthy())

	f.sink.fail.Store(false)
	require.Eventually(t, func() bool {
		return f.sink.beats.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisor_HeartbeatTimeout(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultSupervisorConfig()
	cfg.HeartbeatPeriod = time.Minute
	cfg.Logger = discardLogger()
	cfg.clock = clock.Now

	// 没有心跳目标：无限等待
	s := NewSupervisor(cfg)
	assert.Equal(t, Forever, s.heartbeatTimeout())

	cfg.Heartbeat = &countingSink{}
	s = NewSupervisor(cfg)

	// 从未写过：立即写
	assert.Equal(t, time.Duration(0), s.heartbeatTimeout())

	s.heartbeat()
	assert.Equal(t, time.Minute, s.heartbeatTimeout())

	clock.Advance(20 * time.Second)
	assert.Equal(t, 40*time.Second, s.heartbeatTimeout())

	clock.Advance(time.Minute)
	assert.Equal(t, time.Duration(0), s.heartbeatTimeout())

	// 不健康：无限等待，且不再写
	s.healthy.Store(false)
	assert.Equal(t, Forever, s.heartbeatTimeout())
	s.heartbeat()
	assert.Equal(t, int32(1), cfg.Heartbeat.(*countingSink).beats.Load())
}

func TestSupervisor_StopRemovesActorsAndRestoresHook(t *testing.T) {
	f := newSupervisorFixture(t, 5, time.Minute)

	var mu sync.Mutex
	var previous []Crash
	restore := f.detector.Install(func(c Crash) {
		mu.Lock()
		previous = append(previous, c)
		mu.Unlock()
	})
	defer restore()

	c := newCalculator(f.detector)
	f.sup.Start()
	awaitOK(t, f.sup.Add(c))

	f.sup.Stop()
	require.True(t, f.sup.Join(time.Second))
	require.True(t, c.Join(time.Second))
	assert.False(t, c.IsAlive())

	// 监督者退出后崩溃交回之前的处理函数
	f.detector.Report(Crash{Worker: 1, Known: true})
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, previous, 1)
}

func TestSupervisor_SequentialSupervisorsShareDetector(t *testing.T) {
	detector := NewCrashDetector()

	for i := 0; i < 2; i++ {
		cfg := DefaultSupervisorConfig()
		cfg.CrashDetector = detector
		cfg.Logger = discardLogger()
		sup := NewSupervisor(cfg)

		c := newCalculator(detector)
		sup.Start()
		awaitOK(t, sup.Add(c))
		crashAndWaitRestart(t, c)

		sup.Stop()
		require.True(t, sup.Join(time.Second))
		assert.False(t, detector.Installed())
	}
}
