// Package config 加载受监督进程的配置
//
// 加载顺序（后者覆盖前者）:
//
//  1. 结构体默认值 [Default]
//  2. 配置文件（.yaml / .yml / .json）
//  3. 调用方显式设置的字段（例如命令行参数）
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lwmacct/251216-go-pkg-actor/pkg/actor"
)

// ErrUnsupportedFormat 无法识别的配置格式
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config 进程配置
type Config struct {
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Heartbeat  HeartbeatConfig  `koanf:"heartbeat"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Workers    WorkersConfig    `koanf:"workers"`
}

// SupervisorConfig 重启限制
type SupervisorConfig struct {
	MaxErrorsCount  int           `koanf:"max_errors_count"`
	MaxErrorsPeriod time.Duration `koanf:"max_errors_period"`
}

// HeartbeatConfig 存活标记
type HeartbeatConfig struct {
	// Path 为空时不写心跳
	Path   string        `koanf:"path"`
	Period time.Duration `koanf:"period"`
}

// LogConfig 日志
type LogConfig struct {
	// Level debug / info / warn / error
	Level string `koanf:"level"`
	// Format text / json
	Format string `koanf:"format"`
}

// MetricsConfig 指标
type MetricsConfig struct {
	// Addr 为空时不暴露 /metrics
	Addr string `koanf:"addr"`
}

// WorkersConfig 演示用的 worker 池
type WorkersConfig struct {
	Count   int           `koanf:"count"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Supervisor: SupervisorConfig{
			MaxErrorsCount:  10,
			MaxErrorsPeriod: time.Second,
		},
		Heartbeat: HeartbeatConfig{
			Period: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Workers: WorkersConfig{
			Count:   4,
			Timeout: actor.DefaultTimeout,
		},
	}
}

// Load 在默认值之上加载配置文件，path 为空时只返回默认值
func Load(path string) (*Config, error) {
	k, err := defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		parser, err := parserFor(filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	return unmarshal(k)
}

// Parse 在默认值之上解析内存中的配置，format 为 yaml 或 json
func Parse(data []byte, format string) (*Config, error) {
	k, err := defaults()
	if err != nil {
		return nil, err
	}

	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("parse %s config: %w", format, err)
	}

	return unmarshal(k)
}

func defaults() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return k, nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(format string) (koanf.Parser, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		return yaml.Parser(), nil
	case "json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	var errs []error
	if c.Supervisor.MaxErrorsCount < 0 {
		errs = append(errs, fmt.Errorf("supervisor.max_errors_count must be >= 0, got %d", c.Supervisor.MaxErrorsCount))
	}
	if c.Supervisor.MaxErrorsPeriod <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.max_errors_period must be > 0, got %v", c.Supervisor.MaxErrorsPeriod))
	}
	if c.Heartbeat.Period <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat.period must be > 0, got %v", c.Heartbeat.Period))
	}
	if c.Workers.Count < 0 {
		errs = append(errs, fmt.Errorf("workers.count must be >= 0, got %d", c.Workers.Count))
	}
	if c.Workers.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("workers.timeout must be > 0, got %v", c.Workers.Timeout))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SupervisorConfig 转换为监督者配置，Heartbeat/Logger/Metrics 由调用方补充
func (c *Config) SupervisorConfig() *actor.SupervisorConfig {
	cfg := actor.DefaultSupervisorConfig()
	cfg.MaxErrorsCount = c.Supervisor.MaxErrorsCount
	cfg.MaxErrorsPeriod = c.Supervisor.MaxErrorsPeriod
	cfg.HeartbeatPeriod = c.Heartbeat.Period
	return cfg
}

// NewLogger 按 log.level / log.format 创建日志器
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
