package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/jobs"
	"github.com/partnerhub/internal/provider"
	"github.com/partnerhub/internal/router"
	"github.com/partnerhub/internal/worker"
)

// BuildRunner 按启动模式装配 API 与维护任务服务
func BuildRunner(opts Options) (*Runner, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	container := provider.NewContainer(cfg)

	var services []Service
	if opts.runsAPI() {
		services = append(services, NewHTTPService(cfg.Server, router.SetupRouter(cfg, container)))
	}
	if opts.runsWorker() {
		// 队列开启时 asynq 消费 + cron 调度，否则进程内轮询
		workerService, err := worker.NewService(cfg, worker.NewConsumer(container))
		if err != nil {
			return nil, fmt.Errorf("build worker: %w", err)
		}
		services = append(services, workerService)
	}
	return NewRunner(services...).WithLogger(opts.Logger), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts, err := opts.normalize()
	if err != nil {
		return err
	}
	runner, err := BuildRunner(opts)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start",
		"addr", opts.Config.Server.Addr(),
		"mode", opts.Mode,
		"services", runner.Names(),
	)
	return RunWithOptions(runner, opts)
}

// RunJob 单次执行指定维护任务，供命令行与外部调度器使用
func RunJob(ctx context.Context, cfg *config.Config, name string) (*jobs.Report, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	container := provider.NewContainer(cfg)
	if !container.JobRunner.Has(name) {
		return nil, fmt.Errorf("%w: %s (available: %v)", jobs.ErrUnknownJob, name, container.JobRunner.Names())
	}
	return container.JobRunner.Run(ctx, name)
}
