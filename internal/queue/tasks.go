package queue

import (
	"encoding/json"
	"time"

	"github.com/partnerhub/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionLockSweep 佣金锁定扫描任务
	TaskCommissionLockSweep = constants.TaskCommissionLockSweep
	// TaskCommissionSync 外部订单同步任务
	TaskCommissionSync = constants.TaskCommissionSync
	// TaskPartnerTierRecalc 单个合作伙伴等级重算任务
	TaskPartnerTierRecalc = constants.TaskPartnerTierRecalc
	// TaskTierRecalcAll 全量等级重算任务
	TaskTierRecalcAll = constants.TaskTierRecalcAll
)

// LockSweepPayload 锁定扫描任务载荷
type LockSweepPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// CommissionSyncPayload 订单同步任务载荷，时间为空时由任务按回看窗口推算
type CommissionSyncPayload struct {
	TriggeredBy string     `json:"triggered_by"`
	Since       *time.Time `json:"since,omitempty"`
	Until       *time.Time `json:"until,omitempty"`
}

// TierRecalcPayload 等级重算任务载荷
type TierRecalcPayload struct {
	PartnerID uint   `json:"partner_id"`
	Reason    string `json:"reason"`
}

// TierRecalcAllPayload 全量等级重算任务载荷
type TierRecalcAllPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// NewLockSweepTask 创建锁定扫描任务
func NewLockSweepTask(payload LockSweepPayload) (*asynq.Task, error) {
	return newJSONTask(TaskCommissionLockSweep, payload)
}

// NewCommissionSyncTask 创建订单同步任务
func NewCommissionSyncTask(payload CommissionSyncPayload) (*asynq.Task, error) {
	return newJSONTask(TaskCommissionSync, payload)
}

// NewTierRecalcTask 创建等级重算任务
func NewTierRecalcTask(payload TierRecalcPayload) (*asynq.Task, error) {
	return newJSONTask(TaskPartnerTierRecalc, payload)
}

// NewTierRecalcAllTask 创建全量等级重算任务
func NewTierRecalcAllTask(payload TierRecalcAllPayload) (*asynq.Task, error) {
	return newJSONTask(TaskTierRecalcAll, payload)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
