package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/jobs"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/provider"
	"github.com/partnerhub/internal/queue"
	"github.com/partnerhub/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionLockSweep, c.handleLockSweep)
	mux.HandleFunc(queue.TaskCommissionSync, c.handleCommissionSync)
	mux.HandleFunc(queue.TaskPartnerTierRecalc, c.handlePartnerTierRecalc)
	mux.HandleFunc(queue.TaskTierRecalcAll, c.handleTierRecalcAll)
}

func (c *Consumer) handleLockSweep(ctx context.Context, task *asynq.Task) error {
	var payload queue.LockSweepPayload
	if err := decodePayload(task, &payload); err != nil {
		logger.Warnw("worker_lock_sweep_unmarshal_failed", "error", err)
		return err
	}
	logger.Debugw("worker_lock_sweep_start", "triggered_by", payload.TriggeredBy)
	_, err := c.JobRunner.Run(ctx, constants.JobLockSweep)
	return retryable(err)
}

func (c *Consumer) handleCommissionSync(ctx context.Context, task *asynq.Task) error {
	var payload queue.CommissionSyncPayload
	if err := decodePayload(task, &payload); err != nil {
		logger.Warnw("worker_commission_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.Since == nil && payload.Until == nil {
		_, err := c.JobRunner.Run(ctx, constants.JobCommissionSync)
		return retryable(err)
	}
	job := jobs.NewCommissionSyncJob(c.SyncService).WithWindow(timeOrZero(payload.Since), timeOrZero(payload.Until))
	_, err := c.JobRunner.Execute(ctx, job)
	return retryable(err)
}

func (c *Consumer) handlePartnerTierRecalc(ctx context.Context, task *asynq.Task) error {
	var payload queue.TierRecalcPayload
	if err := decodePayload(task, &payload); err != nil {
		logger.Warnw("worker_tier_recalc_unmarshal_failed", "error", err)
		return err
	}
	if payload.PartnerID == 0 {
		logger.Debugw("worker_tier_recalc_skip_invalid_payload", "partner_id", payload.PartnerID)
		return nil
	}
	res, err := c.TierService.RecalculatePartnerTier(ctx, payload.PartnerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_tier_recalc_skip_partner_not_found", "partner_id", payload.PartnerID)
			return nil
		}
		logger.Warnw("worker_tier_recalc_failed",
			"partner_id", payload.PartnerID,
			"reason", payload.Reason,
			"error", err,
		)
		return retryable(err)
	}
	logger.Debugw("worker_tier_recalc_done",
		"partner_id", payload.PartnerID,
		"reason", payload.Reason,
		"tier", res.CurrentTier,
		"changed", res.Changed,
	)
	return nil
}

func (c *Consumer) handleTierRecalcAll(ctx context.Context, task *asynq.Task) error {
	var payload queue.TierRecalcAllPayload
	if err := decodePayload(task, &payload); err != nil {
		logger.Warnw("worker_tier_recalc_all_unmarshal_failed", "error", err)
		return err
	}
	logger.Debugw("worker_tier_recalc_all_start", "triggered_by", payload.TriggeredBy)
	_, err := c.JobRunner.Run(ctx, constants.JobTierRecalc)
	return retryable(err)
}

func decodePayload(task *asynq.Task, dest interface{}) error {
	if task == nil {
		return errors.New("task is nil")
	}
	if len(task.Payload()) == 0 {
		return nil
	}
	return json.Unmarshal(task.Payload(), dest)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// retryable 配置错误重试也不会成功，直接跳过重试
func retryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, service.ErrConfiguration) {
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}
	return err
}
