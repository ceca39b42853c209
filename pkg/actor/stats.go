package actor

import (
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Actor 统计信息
// ═══════════════════════════════════════════════════════════════════════════

// ActorStats Actor 运行时统计信息
type ActorStats struct {
	// 消息计数
	MessagesReceived int64 // 接收的消息总数
	MessagesHandled  int64 // 处理完成的消息数
	Errors           int64 // 失败的调用数
	Crashes          int64 // worker 崩溃次数
	Starts           int64 // worker 启动次数（含重启）

	// 延迟统计
	TotalLatency   time.Duration // 总处理时间（用于计算平均值）
	AverageLatency time.Duration // 平均处理时间
	MaxLatency     time.Duration // 最大处理时间

	// 时间戳
	StartedAt     time.Time // 最近一次启动时间
	LastMessageAt time.Time // 最后消息时间
	LastErrorAt   time.Time // 最后错误时间

	// 错误信息
	LastError error // 最后一个错误
}

// ═══════════════════════════════════════════════════════════════════════════
// StatsCollector 统计收集器
// ═══════════════════════════════════════════════════════════════════════════

// StatsCollector 线程安全的统计收集器
// 由 worker 写入，任意 goroutine 可以读取快照
type StatsCollector struct {
	mu    sync.RWMutex
	stats ActorStats
}

// NewStatsCollector 创建统计收集器
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// RecordStart 记录 worker 启动
func (c *StatsCollector) RecordStart() {
	c.mu.Lock()
	c.stats.Starts++
	c.stats.StartedAt = time.Now()
	c.mu.Unlock()
}

// RecordReceived 记录接收消息
func (c *StatsCollector) RecordReceived() {
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.stats.LastMessageAt = time.Now()
	c.mu.Unlock()
}

// RecordHandled 记录消息处理完成
func (c *StatsCollector) RecordHandled(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.MessagesHandled++
	c.stats.TotalLatency += latency
	c.stats.AverageLatency = c.stats.TotalLatency / time.Duration(c.stats.MessagesHandled)

	if latency > c.stats.MaxLatency {
		c.stats.MaxLatency = latency
	}
}

// RecordError 记录调用失败
func (c *StatsCollector) RecordError(err error) {
	c.mu.Lock()
	c.stats.Errors++
	c.stats.LastError = err
	c.stats.LastErrorAt = time.Now()
	c.mu.Unlock()
}

// RecordCrash 记录 worker 崩溃
func (c *StatsCollector) RecordCrash(err error) {
	c.mu.Lock()
	c.stats.Crashes++
	c.stats.LastError = err
	c.stats.LastErrorAt = time.Now()
	c.mu.Unlock()
}

// Stats 获取统计快照
func (c *StatsCollector) Stats() ActorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Reset 重置统计
func (c *StatsCollector) Reset() {
	c.mu.Lock()
	c.stats = ActorStats{}
	c.mu.Unlock()
}
