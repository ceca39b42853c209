// Package main 受监督 Actor 进程的命令行工具
//
// 子命令:
//   - run   运行一个受监督的 worker 池，写心跳并暴露 /metrics
//   - check 检查心跳标记，过期时以状态码 1 退出
//   - watch 持续输出心跳标记的存活状态变化
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251216-go-pkg-actor/pkg/config"
	"github.com/lwmacct/251216-go-pkg-actor/pkg/heartbeat"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "actord:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "actord",
		Usage: "supervised actor worker pool with a file heartbeat",
		Commands: []*cli.Command{
			runCommand(),
			checkCommand(),
			watchCommand(),
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the supervised worker pool until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (.yaml, .yml or .json)",
			},
			&cli.StringFlag{
				Name:  "heartbeat",
				Usage: "heartbeat marker path, overrides heartbeat.path",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of worker actors, overrides workers.count",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "listen address for /metrics, overrides metrics.addr",
			},
			&cli.DurationFlag{
				Name:  "crash-interval",
				Usage: "crash a random worker at this interval (0 disables)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			if cmd.IsSet("heartbeat") {
				cfg.Heartbeat.Path = cmd.String("heartbeat")
			}
			if cmd.IsSet("workers") {
				cfg.Workers.Count = int(cmd.Int("workers"))
			}
			if cmd.IsSet("metrics-addr") {
				cfg.Metrics.Addr = cmd.String("metrics-addr")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cfg.NewLogger(os.Stderr)
			return newDaemon(cfg, cmd.Duration("crash-interval"), logger).run(ctx)
		},
	}
}

func markerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Usage:    "heartbeat marker path",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "max-age",
			Usage: "maximum marker age considered alive",
			Value: time.Minute,
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "exit with status 1 when the heartbeat marker is missing or stale",
		Flags: markerFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			return check(os.Stdout, cmd.String("path"), cmd.Duration("max-age"))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "print heartbeat marker status transitions until interrupted",
		Flags: markerFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, os.Stdout, cmd.String("path"), cmd.Duration("max-age"))
		},
	}
}

func check(w io.Writer, path string, maxAge time.Duration) error {
	if err := heartbeat.Check(path, maxAge); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(w, "alive")
	return nil
}

func watch(ctx context.Context, w io.Writer, path string, maxAge time.Duration) error {
	watcher := heartbeat.NewWatcher(path, maxAge, nil)
	return watcher.Run(ctx, func(s heartbeat.Status) {
		fmt.Fprintf(w, "%s %s %s\n", time.Now().Format(time.RFC3339), path, s)
	})
}
