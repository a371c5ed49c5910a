package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"

	"github.com/hibiken/asynq"
)

// PeriodicEntry 周期任务定义
type PeriodicEntry struct {
	CronSpec string
	Build    func() (*asynq.Task, error)
}

// NewScheduler 创建周期任务调度器
func NewScheduler(cfg *config.QueueConfig) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(),
	})
}

// PeriodicEntries 根据配置生成周期任务列表，cron 为空的任务不注册
func PeriodicEntries(cfg config.JobsConfig) []PeriodicEntry {
	specs := []struct {
		job  string
		cron string
	}{
		{constants.JobLockSweep, cfg.LockSweepCron},
		{constants.JobCommissionSync, cfg.CommissionSyncCron},
		{constants.JobTierRecalc, cfg.TierRecalcCron},
	}
	entries := make([]PeriodicEntry, 0, len(specs))
	for _, spec := range specs {
		cron := strings.TrimSpace(spec.cron)
		if cron == "" {
			continue
		}
		job := spec.job
		entries = append(entries, PeriodicEntry{CronSpec: cron, Build: func() (*asynq.Task, error) {
			return JobTask(job, "scheduler")
		}})
	}
	return entries
}

// RegisterPeriodicTasks 将周期任务注册到调度器
func RegisterPeriodicTasks(scheduler *asynq.Scheduler, cfg config.JobsConfig) error {
	if scheduler == nil {
		return nil
	}
	for _, entry := range PeriodicEntries(cfg) {
		task, err := entry.Build()
		if err != nil {
			return err
		}
		entryID, err := scheduler.Register(entry.CronSpec, task, jobTaskOptions()...)
		if err != nil {
			return fmt.Errorf("register periodic task %s failed: %w", task.Type(), err)
		}
		logger.Infow("queue_periodic_task_registered",
			"task_type", task.Type(),
			"cron", entry.CronSpec,
			"entry_id", entryID,
		)
	}
	return nil
}

type asynqLogger struct{}

func newAsynqLogger() asynq.Logger {
	return asynqLogger{}
}

func (asynqLogger) Debug(args ...interface{}) { logger.S().Debug(args...) }
func (asynqLogger) Info(args ...interface{})  { logger.S().Info(args...) }
func (asynqLogger) Warn(args ...interface{})  { logger.S().Warn(args...) }
func (asynqLogger) Error(args ...interface{}) { logger.S().Error(args...) }
func (asynqLogger) Fatal(args ...interface{}) { logger.S().Fatal(args...) }
