package actor

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Message Actor 消息接口
// 所有进入邮箱的消息都必须实现此接口
type Message interface {
	// Kind 返回消息类型标识，用于日志和监控
	Kind() string
}

// WorkerID 一次启动对应的 worker 标识
// 每次 Start 都会分配新值，Actor 自身的 ID 保持不变
type WorkerID uint64

var lastWorkerID atomic.Uint64

func nextWorkerID() WorkerID {
	return WorkerID(lastWorkerID.Add(1))
}

// Supervised 可被监督者管理的对象
// 嵌入 *Actor 的结构体自动满足此接口
type Supervised interface {
	ID() uuid.UUID
	Name() string
	Start() WorkerID
	Stop()
}

// ============== 可选行为钩子 ==============

// BeforeLooper 在第一次循环前执行一次
type BeforeLooper interface {
	BeforeLoop()
}

// AfterLooper 在最后一次循环后执行一次
type AfterLooper interface {
	AfterLoop()
}

// IdleHandler 接收超时（空闲）时调用
type IdleHandler interface {
	OnIdle()
}

// MessageHandler 处理非 Call、非停止信号的消息
type MessageHandler interface {
	OnMessage(msg Message)
}

// TimeoutProvider 动态计算每次接收的超时时间
type TimeoutProvider interface {
	PollTimeout() time.Duration
}

// ============== 系统消息 ==============

// stopSignal 停止哨兵消息
// 只对发出时正在运行的 worker 生效，之后的 worker 会忽略它
type stopSignal struct {
	worker WorkerID
}

// Kind 实现 Message 接口
func (stopSignal) Kind() string { return "system.stop" }

// SimpleMessage 简单消息，用于快速创建消息
type SimpleMessage struct {
	kind    string
	Payload any
}

// NewSimpleMessage 创建简单消息
func NewSimpleMessage(kind string, payload any) *SimpleMessage {
	return &SimpleMessage{kind: kind, Payload: payload}
}

// Kind 实现 Message 接口
func (m *SimpleMessage) Kind() string { return m.kind }
