package actor

import (
	"context"
	"sync"
	"time"
)

// Forever 表示无限期阻塞等待
const Forever time.Duration = -1

// Mailbox 多生产者 / 单消费者的 FIFO 消息队列
//
// 默认无界，Send 只在互斥锁上短暂等待。Receive 只能由一个消费者
// （拥有该邮箱的 worker）调用。容量只限制 Send 入队的用户消息，
// 停止信号和监督者管理消息不占用容量。
type Mailbox[T any] struct {
	mu       sync.Mutex
	items    []envelope[T]
	head     int
	capacity int
	// user 队列中经 Send 入队的消息数
	user int

	// signal 容量为 1，用于唤醒唯一的消费者
	signal chan struct{}
}

type envelope[T any] struct {
	v      T
	system bool
}

// NewMailbox 创建邮箱，capacity <= 0 表示无界
func NewMailbox[T any](capacity int) *Mailbox[T] {
	return &Mailbox[T]{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Send 入队一条消息
// 无界邮箱总是成功；有界邮箱已满时返回 ErrMailboxFull
func (m *Mailbox[T]) Send(v T) error {
	m.mu.Lock()
	if m.capacity > 0 && m.user >= m.capacity {
		m.mu.Unlock()
		return ErrMailboxFull
	}
	m.items = append(m.items, envelope[T]{v: v})
	m.user++
	m.mu.Unlock()

	m.notify()
	return nil
}

// push 忽略容量限制入队，用于系统消息
func (m *Mailbox[T]) push(v T) {
	m.mu.Lock()
	m.items = append(m.items, envelope[T]{v: v, system: true})
	m.mu.Unlock()

	m.notify()
}

func (m *Mailbox[T]) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Receive 取出下一条消息
//
// timeout < 0 无限等待，timeout == 0 非阻塞轮询。超时返回 ErrNoMessage，
// ctx 取消返回 ctx.Err()。
func (m *Mailbox[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	if v, ok := m.pop(); ok {
		return v, nil
	}

	var zero T
	if timeout == 0 {
		return zero, ErrNoMessage
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-m.signal:
			if v, ok := m.pop(); ok {
				return v, nil
			}
		case <-expired:
			if v, ok := m.pop(); ok {
				return v, nil
			}
			return zero, ErrNoMessage
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len 返回当前排队的消息数
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) - m.head
}

func (m *Mailbox[T]) pop() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.head >= len(m.items) {
		return zero, false
	}
	e := m.items[m.head]
	m.items[m.head] = envelope[T]{}
	m.head++
	if !e.system {
		m.user--
	}

	// 队列清空后复用底层数组
	if m.head == len(m.items) {
		m.items = m.items[:0]
		m.head = 0
	}
	return e.v, true
}
