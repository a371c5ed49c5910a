package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// 任务失败原因（低基数）
const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonUnknown              = "unknown"
)

// 状态迁移被拒绝的来源
const (
	RejectSourceSweep   = "sweep"
	RejectSourceWebhook = "webhook"
	RejectSourceSync    = "sync"
	RejectSourceAdmin   = "admin"
)

// Webhook 处理结果
const (
	WebhookResultAccepted = "accepted"
	WebhookResultIgnored  = "ignored"
	WebhookResultRejected = "rejected"
	WebhookResultFailed   = "failed"
)

// Config 指标标签配置
type Config struct {
	ServiceName string
	Environment string
}

// Registry 佣金引擎与维护任务指标
type Registry struct {
	jobRuns             *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	jobErrors           *prometheus.CounterVec
	jobItems            *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	rejectedTransitions *prometheus.CounterVec
	tierChanges         *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	gatherer            prometheus.Gatherer
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default 返回全局指标实例（注册到 prometheus 默认 registry）
func Default() *Registry {
	return WithConfig(Config{})
}

// WithConfig 使用给定标签创建全局指标实例，只在首次调用时生效
func WithConfig(cfg Config) *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = newRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, cfg)
	})
	return defaultRegistry
}

// NewForTest 创建独立 registry 的指标实例
func NewForTest() *Registry {
	registry := prometheus.NewRegistry()
	return newRegistry(registry, registry, Config{ServiceName: "partnerhub", Environment: "test"})
}

func newRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer, cfg Config) *Registry {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "partnerhub"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_job_runs_total",
		Help:        "Maintenance job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "partnerhub_job_duration_seconds",
		Help:        "Maintenance job latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_job_errors_total",
		Help:        "Maintenance job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	jobItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_job_items_total",
		Help:        "Items handled by maintenance jobs by outcome.",
		ConstLabels: constLabels,
	}, []string{"job", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_commission_transitions_total",
		Help:        "Applied commission status transitions.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	rejectedTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_commission_transitions_rejected_total",
		Help:        "Commission transitions rejected because the record was not in a valid source state.",
		ConstLabels: constLabels,
	}, []string{"event", "source"})
	tierChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_partner_tier_changes_total",
		Help:        "Partner tier changes written by recalculation.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerhub_webhook_events_total",
		Help:        "Inbound order webhook events by kind and result.",
		ConstLabels: constLabels,
	}, []string{"kind", "result"})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobErrors,
		jobItems,
		transitions,
		rejectedTransitions,
		tierChanges,
		webhookEvents,
	)

	return &Registry{
		jobRuns:             jobRuns,
		jobDuration:         jobDuration,
		jobErrors:           jobErrors,
		jobItems:            jobItems,
		transitions:         transitions,
		rejectedTransitions: rejectedTransitions,
		tierChanges:         tierChanges,
		webhookEvents:       webhookEvents,
		gatherer:            gatherer,
	}
}

// Handler 返回 /metrics 处理器
func (m *Registry) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// IncJobRun 记录任务执行次数
func (m *Registry) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration 记录任务耗时
func (m *Registry) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobError 记录任务失败
func (m *Registry) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

// AddJobItems 记录任务处理条目数
func (m *Registry) AddJobItems(job, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.jobItems.WithLabelValues(job, outcome).Add(float64(count))
}

// IncTransition 记录成功的佣金状态迁移
func (m *Registry) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// IncRejectedTransition 记录被拒绝的佣金状态迁移
func (m *Registry) IncRejectedTransition(event, source string) {
	if m == nil {
		return
	}
	m.rejectedTransitions.WithLabelValues(event, source).Inc()
}

// IncTierChange 记录等级变化
func (m *Registry) IncTierChange(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "none"
	}
	m.tierChanges.WithLabelValues(from, to).Inc()
}

// IncWebhookEvent 记录 webhook 事件
func (m *Registry) IncWebhookEvent(kind, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(kind, result).Inc()
}

// ClassifyJobReason 将任务错误映射为低基数原因
func ClassifyJobReason(err error) string {
	if err == nil {
		return JobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return JobReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return JobReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return JobReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return JobReasonUniqueViolation
	}
	return JobReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
