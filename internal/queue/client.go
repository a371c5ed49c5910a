package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 等级重算等事件驱动任务
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 定时维护任务
	CriticalQueue = constants.QueueCritical

	tierRecalcUniqueTTL = 30 * time.Second
	jobUniqueTTL        = 5 * time.Minute
	jobMaxRetry         = 3
	defaultConcurrency  = 10
	shutdownTimeout     = 20 * time.Second
)

var (
	// ErrQueueDisabled 队列未启用
	ErrQueueDisabled = errors.New("queue disabled")
	// ErrUnknownJobTask 任务名没有对应的队列任务
	ErrUnknownJobTask = errors.New("unknown job task")
)

// Client 队列客户端，未启用时所有投递都是空操作
type Client struct {
	inner *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{inner: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 是否真正连接了队列
func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueTierRecalc 投递单个合作伙伴的等级重算，30 秒内同一合作伙伴去重
func (c *Client) EnqueueTierRecalc(payload TierRecalcPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewTierRecalcTask(payload)
	if err != nil {
		return err
	}
	_, err = c.enqueue(context.Background(), task,
		append([]asynq.Option{asynq.Queue(DefaultQueue), asynq.Unique(tierRecalcUniqueTTL)}, opts...)...)
	return err
}

// EnqueueJob 按维护任务名投递到 critical 队列，返回任务 ID；重复投递返回空 ID
func (c *Client) EnqueueJob(ctx context.Context, name, triggeredBy string) (string, error) {
	if !c.Enabled() {
		return "", ErrQueueDisabled
	}
	task, err := JobTask(name, triggeredBy)
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task, jobTaskOptions()...)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (string, error) {
	info, err := c.inner.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debugw("queue_task_deduplicated", "task_type", task.Type())
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info.ID, nil
}

// JobTask 维护任务名到队列任务的映射，调度器与手动投递共用
func JobTask(name, triggeredBy string) (*asynq.Task, error) {
	switch strings.TrimSpace(name) {
	case constants.JobLockSweep:
		return NewLockSweepTask(LockSweepPayload{TriggeredBy: triggeredBy})
	case constants.JobCommissionSync:
		return NewCommissionSyncTask(CommissionSyncPayload{TriggeredBy: triggeredBy})
	case constants.JobTierRecalc:
		return NewTierRecalcAllTask(TierRecalcAllPayload{TriggeredBy: triggeredBy})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobTask, name)
	}
}

func jobTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(jobMaxRetry),
		asynq.Unique(jobUniqueTTL),
	}
}

// BuildServerConfig 生成消费端配置，任务失败统一记日志
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency:     defaultConcurrency,
		Queues:          map[string]int{DefaultQueue: 1, CriticalQueue: 1},
		Logger:          newAsynqLogger(),
		ShutdownTimeout: shutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warnw("queue_task_failed", "task_type", task.Type(), "retried", retried, "error", err)
		}),
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
