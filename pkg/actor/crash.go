package actor

import (
	"runtime/debug"
	"sync"
)

// Crash worker 未捕获失败的描述
type Crash struct {
	// Worker 失败的 worker，Known 为 false 时无意义
	Worker WorkerID
	// Known 是否能确定失败的 worker
	Known     bool
	Recovered any
	Stack     []byte
}

// CrashHandler 崩溃处理函数
type CrashHandler func(c Crash)

// CrashDetector 崩溃钩子的注册点
//
// 同一时刻只有一个处理函数生效。Install 返回的 restore 会恢复之前的处理函数，
// 安装与卸载必须成对出现。
type CrashDetector struct {
	mu      sync.RWMutex
	handler CrashHandler
}

// DefaultCrashDetector 进程级默认崩溃钩子
var DefaultCrashDetector = NewCrashDetector()

// NewCrashDetector 创建独立的崩溃钩子
func NewCrashDetector() *CrashDetector {
	return &CrashDetector{}
}

// Install 安装处理函数，返回恢复之前处理函数的函数
func (d *CrashDetector) Install(h CrashHandler) (restore func()) {
	d.mu.Lock()
	prev := d.handler
	d.handler = h
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			d.handler = prev
			d.mu.Unlock()
		})
	}
}

// Installed 是否已安装处理函数
func (d *CrashDetector) Installed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handler != nil
}

// Report 把崩溃交给当前处理函数，没有处理函数时丢弃
func (d *CrashDetector) Report(c Crash) {
	d.mu.RLock()
	h := d.handler
	d.mu.RUnlock()

	if h != nil {
		h(c)
	}
}

// Go 在不属于任何 Actor 的 goroutine 中运行 fn
// fn 中的 panic 以“未知 worker”的形式上报
func (d *CrashDetector) Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.Report(Crash{Recovered: r, Stack: debug.Stack()})
			}
		}()
		fn()
	}()
}
