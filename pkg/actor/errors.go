package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoMessage 接收超时，邮箱中没有消息（不是错误，是正常的空闲信号）
	ErrNoMessage = errors.New("no message")

	// ErrMailboxFull 有界邮箱已满
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrTimeout 等待 Future 超时，Future 仍可再次等待
	ErrTimeout = errors.New("future await timed out")

	// ErrNotReady Future 尚未写入结果
	ErrNotReady = errors.New("future is not ready")
)

// PanicError 调用或 Actor 循环中被 recover 的 panic
type PanicError struct {
	Value any
	Stack []byte
}

// Error 实现 error 接口
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 如果 panic 的值本身是 error，则暴露它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RestartLimitError 在时间窗口内失败次数超过上限，Actor 已被监督者移除
type RestartLimitError struct {
	ActorID   uuid.UUID
	ActorName string
	Failures  int
	MaxErrors int
	Period    time.Duration
}

// Error 实现 error 接口
func (e *RestartLimitError) Error() string {
	return fmt.Sprintf(
		"actor %s with id %s failed %d times (more than %d) within %v, and was removed from supervisor",
		e.ActorName, e.ActorID, e.Failures, e.MaxErrors, e.Period,
	)
}

func timeoutError(d time.Duration) error {
	return fmt.Errorf("%w after %v", ErrTimeout, d)
}
