package actor

import "time"

// Metrics 运行时指标接口
// 所有方法都必须是线程安全的
type Metrics interface {
	// 消息处理
	MessageProcessed(actor, kind string, success bool)
	MessageDuration(actor, kind string, d time.Duration)

	// worker 生命周期
	WorkerCrashed(actor string)
	ActorRestarted(actor string)
	ActorDropped(actor string)

	// 监督者
	SupervisedActors(n int)
	HeartbeatWritten(success bool)
	SupervisorHealthy(healthy bool)
}

// nopMetrics Metrics 的空实现
type nopMetrics struct{}

func (nopMetrics) MessageProcessed(string, string, bool)        {}
func (nopMetrics) MessageDuration(string, string, time.Duration) {}
func (nopMetrics) WorkerCrashed(string)                          {}
func (nopMetrics) ActorRestarted(string)                         {}
func (nopMetrics) ActorDropped(string)                           {}
func (nopMetrics) SupervisedActors(int)                          {}
func (nopMetrics) HeartbeatWritten(bool)                         {}
func (nopMetrics) SupervisorHealthy(bool)                        {}

// NopMetrics 返回空的 Metrics 实现
func NopMetrics() Metrics { return nopMetrics{} }
