package worker

import (
	"context"
	"errors"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultTickerInterval = time.Minute
	tierRecalcInterval    = 24 * time.Hour
)

// Service 维护任务服务：队列开启时由 asynq 消费并按 cron 调度，否则本地轮询
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	consumer  *Consumer
	jobsCfg   config.JobsConfig
}

// NewService 创建维护任务服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil || consumer.Container == nil {
		return nil, errors.New("consumer is nil")
	}
	svc := &Service{
		name:     "worker",
		consumer: consumer,
		jobsCfg:  cfg.Jobs,
	}
	if !cfg.Queue.Enabled {
		logger.Warnw("worker_queue_disabled_fallback_ticker", "interval_seconds", cfg.Jobs.TickerSeconds)
		return svc, nil
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	svc.server = asynq.NewServer(opt, serverCfg)
	svc.mux = asynq.NewServeMux()
	consumer.Register(svc.mux)

	if len(queue.PeriodicEntries(cfg.Jobs)) > 0 {
		scheduler := queue.NewScheduler(&cfg.Queue)
		if err := queue.RegisterPeriodicTasks(scheduler, cfg.Jobs); err != nil {
			return nil, err
		}
		svc.scheduler = scheduler
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.server == nil {
		s.runTickerLoop(ctx)
		return nil
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}

// runTickerLoop 队列关闭时在进程内执行维护任务，任务本身可重复执行
func (s *Service) runTickerLoop(ctx context.Context) {
	interval := defaultTickerInterval
	if s.jobsCfg.TickerSeconds > 0 {
		interval = time.Duration(s.jobsCfg.TickerSeconds) * time.Second
	}
	runner := s.consumer.JobRunner
	runSweeps := func() {
		for _, name := range []string{constants.JobLockSweep, constants.JobCommissionSync} {
			if ctx.Err() != nil {
				return
			}
			if _, err := runner.Run(ctx, name); err != nil {
				logger.Warnw("worker_ticker_job_failed", "job", name, "error", err)
			}
		}
	}
	runTierRecalc := func() {
		if _, err := runner.Run(ctx, constants.JobTierRecalc); err != nil {
			logger.Warnw("worker_ticker_job_failed", "job", constants.JobTierRecalc, "error", err)
		}
	}
	runSweeps()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	daily := time.NewTicker(tierRecalcInterval)
	defer daily.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSweeps()
		case <-daily.C:
			runTierRecalc()
		}
	}
}
