package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Status 标记的存活状态
type Status int

const (
	// StatusUnknown 尚未检查
	StatusUnknown Status = iota
	// StatusAlive 标记在允许时长内被刷新
	StatusAlive
	// StatusStale 标记缺失或过期
	StatusStale
)

// String 返回状态名称
func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Watcher 监听标记文件，在存活状态变化时回调
//
// 通过 fsnotify 监听标记所在目录（文件可能被重新创建），
// 同时用定时器发现“长时间没有写入”的情况。
type Watcher struct {
	path   string
	maxAge time.Duration
	logger *slog.Logger
}

// NewWatcher 创建监听器
func NewWatcher(path string, maxAge time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:   filepath.Clean(path),
		maxAge: maxAge,
		logger: logger,
	}
}

// Run 阻塞运行直到 ctx 取消
// 第一次检查的结果总会回调一次，之后只在状态变化时回调
func (w *Watcher) Run(ctx context.Context, onChange func(Status)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	current := StatusUnknown
	timer := time.NewTimer(0)
	defer timer.Stop()

	evaluate := func() {
		status, next := w.evaluate()
		if status != current {
			current = status
			w.logger.Debug("heartbeat status changed", "path", w.path, "status", status)
			onChange(status)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(next)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			evaluate()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Chmod) || ev.Has(fsnotify.Remove) {
				evaluate()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("heartbeat watcher error", "path", w.path, "error", err)
		}
	}
}

// evaluate 返回当前状态以及下一次需要重新检查的时间
func (w *Watcher) evaluate() (Status, time.Duration) {
	age, err := Age(w.path)
	if err != nil || age > w.maxAge {
		return StatusStale, w.maxAge
	}
	// 刚好过期时再检查一次
	return StatusAlive, w.maxAge - age + time.Millisecond
}
