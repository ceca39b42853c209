// Package metrics 提供 actor.Metrics 的 Prometheus 实现
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwmacct/251216-go-pkg-actor/pkg/actor"
)

// 延迟直方图的默认分桶（秒）
var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5,
}

// Prometheus 用 Prometheus 实现 actor.Metrics
type Prometheus struct {
	messagesTotal     *prometheus.CounterVec
	messageDuration   *prometheus.HistogramVec
	crashesTotal      *prometheus.CounterVec
	restartsTotal     *prometheus.CounterVec
	droppedTotal      *prometheus.CounterVec
	supervisedActors  prometheus.Gauge
	heartbeatsTotal   *prometheus.CounterVec
	lastHeartbeat     prometheus.Gauge
	supervisorHealthy prometheus.Gauge
}

var _ actor.Metrics = (*Prometheus)(nil)

// NewPrometheus 创建并注册所有指标
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_messages_total",
			Help: "Total number of messages processed by actor workers",
		}, []string{"actor", "kind", "success"}),

		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actor_message_duration_seconds",
			Help:    "Message handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"actor", "kind"}),

		crashesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_worker_crashes_total",
			Help: "Total number of uncaught failures in actor workers",
		}, []string{"actor"}),

		restartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_restarts_total",
			Help: "Total number of actor restarts performed by the supervisor",
		}, []string{"actor"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_dropped_total",
			Help: "Total number of actors removed after exceeding the restart limit",
		}, []string{"actor"}),

		supervisedActors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actor_supervised",
			Help: "Number of actors currently supervised",
		}),

		heartbeatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_supervisor_heartbeats_total",
			Help: "Total number of heartbeat writes",
		}, []string{"success"}),

		lastHeartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actor_supervisor_last_heartbeat_timestamp_seconds",
			Help: "Unix time of the last successful heartbeat write",
		}),

		supervisorHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actor_supervisor_healthy",
			Help: "1 while the supervisor is healthy, 0 once an actor exceeded its restart limit",
		}),
	}

	reg.MustRegister(
		m.messagesTotal,
		m.messageDuration,
		m.crashesTotal,
		m.restartsTotal,
		m.droppedTotal,
		m.supervisedActors,
		m.heartbeatsTotal,
		m.lastHeartbeat,
		m.supervisorHealthy,
	)

	return m
}

// MessageProcessed 按 Actor、消息类型和结果计数
func (m *Prometheus) MessageProcessed(actorName, kind string, success bool) {
	m.messagesTotal.WithLabelValues(actorName, kind, boolToStr(success)).Inc()
}

// MessageDuration 记录消息处理耗时
func (m *Prometheus) MessageDuration(actorName, kind string, d time.Duration) {
	m.messageDuration.WithLabelValues(actorName, kind).Observe(d.Seconds())
}

// WorkerCrashed 记录一次 worker 崩溃
func (m *Prometheus) WorkerCrashed(actorName string) {
	m.crashesTotal.WithLabelValues(actorName).Inc()
}

// ActorRestarted 记录一次监督者重启
func (m *Prometheus) ActorRestarted(actorName string) {
	m.restartsTotal.WithLabelValues(actorName).Inc()
}

// ActorDropped 记录超过重启上限被移除的 Actor
func (m *Prometheus) ActorDropped(actorName string) {
	m.droppedTotal.WithLabelValues(actorName).Inc()
}

// SupervisedActors 设置当前被监督的 Actor 数量
func (m *Prometheus) SupervisedActors(n int) {
	m.supervisedActors.Set(float64(n))
}

// HeartbeatWritten 记录心跳写入结果，成功时更新最后心跳时间
func (m *Prometheus) HeartbeatWritten(success bool) {
	m.heartbeatsTotal.WithLabelValues(boolToStr(success)).Inc()
	if success {
		m.lastHeartbeat.SetToCurrentTime()
	}
}

// SupervisorHealthy 设置监督者健康状态
func (m *Prometheus) SupervisorHealthy(healthy bool) {
	if healthy {
		m.supervisorHealthy.Set(1)
		return
	}
	m.supervisorHealthy.Set(0)
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
