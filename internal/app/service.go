package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultStopTimeout = 10 * time.Second

// Service 可被 Runner 托管的长期运行服务
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 同时运行多个服务，任一服务退出或上下文取消时整体停机
type Runner struct {
	services []Service
	log      *zap.SugaredLogger
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// WithLogger 设置运行日志
func (r *Runner) WithLogger(log *zap.SugaredLogger) *Runner {
	if r != nil {
		r.log = log
	}
	return r
}

// Names 托管的服务名，按注册顺序
func (r *Runner) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		names = append(names, svc.Name())
	}
	return names
}

type serviceExit struct {
	name string
	err  error
}

// Run 启动全部服务并阻塞，返回首个退出服务的错误与停机错误
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for i, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service #%d is nil", i)
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			r.infow("service_start", "service", svc.Name())
			exits <- serviceExit{name: svc.Name(), err: svc.Start(ctx)}
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		r.infow("service_shutdown_signal", "reason", ctx.Err())
	case exit := <-exits:
		r.infow("service_exit", "service", exit.name, "error", exit.err)
		if exit.err != nil {
			runErr = fmt.Errorf("%s: %w", exit.name, exit.err)
		}
	}
	cancel()

	return errors.Join(runErr, r.stopAll(stopTimeout))
}

// stopAll 逆序停止服务，后启动的先停
func (r *Runner) stopAll(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()

	var errs []error
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		startedAt := time.Now()
		if err := svc.Stop(stopCtx); err != nil {
			if r.log != nil {
				r.log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
			continue
		}
		r.infow("service_stopped", "service", svc.Name(), "duration_ms", time.Since(startedAt).Milliseconds())
	}
	return errors.Join(errs...)
}

func (r *Runner) infow(msg string, kv ...interface{}) {
	if r.log != nil {
		r.log.Infow(msg, kv...)
	}
}
