package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lwmacct/251216-go-pkg-actor/pkg/actor"
	"github.com/lwmacct/251216-go-pkg-actor/pkg/config"
	"github.com/lwmacct/251216-go-pkg-actor/pkg/heartbeat"
	"github.com/lwmacct/251216-go-pkg-actor/pkg/metrics"
)

const (
	loadInterval    = 100 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// daemon 一个受监督的 worker 池
type daemon struct {
	cfg           *config.Config
	crashInterval time.Duration
	logger        *slog.Logger
	registry      *prometheus.Registry

	supervisor *actor.Supervisor
	workers    []*worker
}

func newDaemon(cfg *config.Config, crashInterval time.Duration, logger *slog.Logger) *daemon {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPrometheus(reg)
	detector := actor.NewCrashDetector()

	sc := cfg.SupervisorConfig()
	sc.CrashDetector = detector
	sc.Logger = logger
	sc.Metrics = m
	if cfg.Heartbeat.Path != "" {
		sc.Heartbeat = heartbeat.NewFileSink(cfg.Heartbeat.Path)
	}

	d := &daemon{
		cfg:           cfg,
		crashInterval: crashInterval,
		logger:        logger,
		registry:      reg,
		supervisor:    actor.NewSupervisor(sc),
	}
	for i := range cfg.Workers.Count {
		d.workers = append(d.workers, newWorker(
			fmt.Sprintf("worker-%d", i),
			actor.WithTimeout(cfg.Workers.Timeout),
			actor.WithLogger(logger),
			actor.WithCrashDetector(detector),
			actor.WithMetrics(m),
		))
	}
	return d
}

// run 阻塞运行直到 ctx 取消
func (d *daemon) run(ctx context.Context) error {
	futures := make([]*actor.Future[struct{}], 0, len(d.workers))
	for _, w := range d.workers {
		futures = append(futures, d.supervisor.Add(w))
	}
	d.supervisor.Start()
	for _, f := range futures {
		if _, err := f.Await(shutdownTimeout); err != nil {
			d.supervisor.Stop()
			return fmt.Errorf("add worker: %w", err)
		}
	}

	d.logger.Info("actord started",
		"workers", len(d.workers),
		"heartbeat", d.cfg.Heartbeat.Path,
		"metrics", d.cfg.Metrics.Addr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		d.supervisor.Stop()
		if !d.supervisor.Join(shutdownTimeout) {
			return errors.New("supervisor did not stop in time")
		}
		return nil
	})

	if d.cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              d.cfg.Metrics.Addr,
			Handler:           d.handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if len(d.workers) > 0 {
		g.Go(func() error {
			d.generateLoad(gctx)
			return nil
		})
		if d.crashInterval > 0 {
			g.Go(func() error {
				d.injectCrashes(gctx)
				return nil
			})
		}
	}

	err := g.Wait()
	d.logger.Info("actord stopped", "healthy", d.supervisor.Healthy())
	return err
}

func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !d.supervisor.Healthy() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// generateLoad 持续向随机 worker 投递调用
func (d *daemon) generateLoad(ctx context.Context) {
	ticker := time.NewTicker(loadInterval)
	defer ticker.Stop()

	reported := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pick().Incr(1)
			if !reported && !d.supervisor.Healthy() {
				reported = true
				d.logger.Warn("supervisor is unhealthy, heartbeat stopped")
			}
		}
	}
}

// injectCrashes 周期性让随机 worker 崩溃，用于观察重启
func (d *daemon) injectCrashes(ctx context.Context) {
	ticker := time.NewTicker(d.crashInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w := d.pick()
			if err := w.Send(chaosMessage{}); err != nil {
				d.logger.Warn("chaos injection failed", "worker", w.Name(), "error", err)
				continue
			}
			d.logger.Debug("chaos injected", "worker", w.Name())
		}
	}
}

func (d *daemon) pick() *worker {
	return d.workers[rand.IntN(len(d.workers))]
}
