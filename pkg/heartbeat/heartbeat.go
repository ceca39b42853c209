// Package heartbeat 提供基于文件修改时间的存活标记
//
// 监督者通过 [FileSink] 周期性地刷新标记文件，外部通过 [Check] 或 [Watcher]
// 判断进程是否存活，效果等同于:
//
//	test `find "path/to/live_file" -mmin -1`
package heartbeat

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

var (
	// ErrMissing 标记文件不存在
	ErrMissing = errors.New("heartbeat marker is missing")

	// ErrStale 标记文件超过最大允许时长未更新
	ErrStale = errors.New("heartbeat marker is stale")
)

// FileSink 把心跳写为文件的修改时间
// 内容总是为空，只有修改时间有意义
type FileSink struct {
	Path string
}

// NewFileSink 创建文件心跳目标
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Beat 创建或截断标记文件并刷新修改时间
func (s *FileSink) Beat() error {
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open heartbeat marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close heartbeat marker: %w", err)
	}

	now := time.Now()
	if err := os.Chtimes(s.Path, now, now); err != nil {
		return fmt.Errorf("touch heartbeat marker: %w", err)
	}
	return nil
}

// Age 返回标记距今的时长
func Age(path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

// Check 检查标记在 maxAge 内是否被刷新过
func Check(path string, maxAge time.Duration) error {
	age, err := Age(path)
	if err != nil {
		return err
	}
	if age > maxAge {
		return fmt.Errorf("%w: %s last updated %v ago (max %v)",
			ErrStale, path, age.Truncate(time.Millisecond), maxAge)
	}
	return nil
}
