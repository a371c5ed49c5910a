package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/service"
)

// ErrUnknownJob 未注册的任务名
var ErrUnknownJob = errors.New("unknown job")

// Item outcome 标签
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Report 单次任务执行结果
type Report struct {
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Detail    interface{}   `json:"detail,omitempty"`
}

// Job 可重复执行的维护任务，同一时刻重复触发也必须安全
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (*Report, error)
}

// Runner 执行任务并记录指标与日志
type Runner struct {
	jobs    map[string]Job
	metrics *metrics.Registry
	now     func() time.Time
}

// NewRunner 创建任务执行器
func NewRunner(registry *metrics.Registry, jobs ...Job) *Runner {
	r := &Runner{jobs: make(map[string]Job, len(jobs)), metrics: registry, now: time.Now}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		r.jobs[job.Name()] = job
	}
	return r
}

// Names 已注册任务名
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has 是否注册了任务
func (r *Runner) Has(name string) bool {
	_, ok := r.jobs[name]
	return ok
}

// Run 按名称执行任务
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.Execute(ctx, job)
}

// Execute 执行给定任务，任务无需注册
func (r *Runner) Execute(ctx context.Context, job Job) (*Report, error) {
	name := job.Name()
	startedAt := r.now()
	r.metrics.IncJobRun(name)
	report, err := job.Run(ctx, startedAt)
	duration := time.Since(startedAt)
	r.metrics.ObserveJobDuration(name, duration)
	if report == nil {
		report = &Report{}
	}
	report.Job = name
	report.StartedAt = startedAt
	report.Duration = duration
	r.metrics.AddJobItems(name, OutcomeProcessed, report.Processed)
	r.metrics.AddJobItems(name, OutcomeSkipped, report.Skipped)
	r.metrics.AddJobItems(name, OutcomeFailed, report.Failed)
	if err != nil {
		r.metrics.IncJobError(name, err)
		logger.Errorw("job_run_failed",
			"job", name,
			"duration_ms", duration.Milliseconds(),
			"processed", report.Processed,
			"error", err,
		)
		return report, err
	}
	logger.Infow("job_run_done",
		"job", name,
		"duration_ms", duration.Milliseconds(),
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// LockSweeper 锁定扫描依赖
type LockSweeper interface {
	LockDueCommissions(ctx context.Context, now time.Time, batchSize int) (*service.LockSweepResult, error)
}

// CommissionSyncer 订单同步依赖
type CommissionSyncer interface {
	Enabled() bool
	Window(now time.Time) (time.Time, time.Time)
	SyncCommissions(ctx context.Context, since, until time.Time) (*service.SyncSummary, error)
}

// TierRecalculator 全量等级重算依赖
type TierRecalculator interface {
	RecalculateAllTiers(ctx context.Context, batchSize int) (service.TierRecalcSummary, error)
}

// LockSweepJob pending 记录到期锁定
type LockSweepJob struct {
	sweeper   LockSweeper
	batchSize int
}

// NewLockSweepJob 创建锁定扫描任务
func NewLockSweepJob(sweeper LockSweeper, batchSize int) *LockSweepJob {
	return &LockSweepJob{sweeper: sweeper, batchSize: batchSize}
}

// Name 任务名
func (j *LockSweepJob) Name() string { return constants.JobLockSweep }

// Run 执行锁定扫描
func (j *LockSweepJob) Run(ctx context.Context, now time.Time) (*Report, error) {
	res, err := j.sweeper.LockDueCommissions(ctx, now, j.batchSize)
	if err != nil {
		return nil, err
	}
	return &Report{Processed: res.Locked, Skipped: res.Skipped, Detail: res}, nil
}

// CommissionSyncJob 外部订单对账
type CommissionSyncJob struct {
	syncer CommissionSyncer
	since  time.Time
	until  time.Time
}

// NewCommissionSyncJob 创建订单同步任务
func NewCommissionSyncJob(syncer CommissionSyncer) *CommissionSyncJob {
	return &CommissionSyncJob{syncer: syncer}
}

// Name 任务名
func (j *CommissionSyncJob) Name() string { return constants.JobCommissionSync }

// WithWindow 返回固定同步窗口的副本，用于补偿指定时间段
func (j *CommissionSyncJob) WithWindow(since, until time.Time) *CommissionSyncJob {
	return &CommissionSyncJob{syncer: j.syncer, since: since, until: until}
}

// Run 同步回看窗口内的发票；未配置订单源时跳过
func (j *CommissionSyncJob) Run(ctx context.Context, now time.Time) (*Report, error) {
	if j.syncer == nil || !j.syncer.Enabled() {
		logger.Debugw("job_commission_sync_skip_disabled")
		return &Report{}, nil
	}
	since, until := j.syncer.Window(now)
	if !j.since.IsZero() || !j.until.IsZero() {
		since, until = j.since, j.until
	}
	summary, err := j.syncer.SyncCommissions(ctx, since, until)
	if summary == nil {
		return nil, err
	}
	report := &Report{
		Processed: summary.Created + summary.Cancelled,
		Skipped:   summary.Duplicate + summary.Ignored,
		Failed:    summary.Failed,
		Detail:    summary,
	}
	return report, err
}

// TierRecalcJob 全量等级重算
type TierRecalcJob struct {
	recalculator TierRecalculator
	batchSize    int
}

// NewTierRecalcJob 创建全量等级重算任务
func NewTierRecalcJob(recalculator TierRecalculator, batchSize int) *TierRecalcJob {
	return &TierRecalcJob{recalculator: recalculator, batchSize: batchSize}
}

// Name 任务名
func (j *TierRecalcJob) Name() string { return constants.JobTierRecalc }

// Run 执行全量等级重算
func (j *TierRecalcJob) Run(ctx context.Context, _ time.Time) (*Report, error) {
	summary, err := j.recalculator.RecalculateAllTiers(ctx, j.batchSize)
	report := &Report{
		Processed: summary.Changed,
		Skipped:   summary.Scanned - summary.Changed - summary.Failed,
		Failed:    summary.Failed,
		Detail:    summary,
	}
	return report, err
}
