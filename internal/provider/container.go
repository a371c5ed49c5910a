package provider

import (
	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/jobs"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/orders"
	"github.com/partnerhub/internal/queue"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Registry

	// Repositories
	PartnerRepo      repository.PartnerRepository
	TierRepo         repository.TierRepository
	VoucherRepo      repository.VoucherRepository
	CommissionRepo   repository.CommissionRepository
	AdjustmentRepo   repository.AdjustmentRepository
	PaymentBatchRepo repository.PaymentBatchRepository
	LockSettingRepo  repository.LockPaymentSettingRepository
	WithdrawalRepo   repository.WithdrawalRepository

	// Services
	TokenService        *service.TokenService
	LockSettingService  *service.LockPaymentSettingService
	TierService         *service.TierService
	PartnerService      *service.PartnerService
	CommissionService   *service.CommissionService
	DashboardService    *service.DashboardService
	PaymentBatchService *service.PaymentBatchService
	WithdrawalService   *service.WithdrawalService
	SyncService         *service.SyncService

	JobRunner *jobs.Runner
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	registry := metrics.Default()
	if !cfg.Metrics.Enabled {
		registry = nil
	}

	return Build(cfg, models.DB, queueClient, registry)
}

// Build 基于给定数据库与队列组装容器，测试中直接使用
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client, registry *metrics.Registry) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     registry,
	}
	c.initRepositories(db)
	c.initServices()
	c.initJobs()
	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.PartnerRepo = repository.NewPartnerRepository(db)
	c.TierRepo = repository.NewTierRepository(db)
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.AdjustmentRepo = repository.NewAdjustmentRepository(db)
	c.PaymentBatchRepo = repository.NewPaymentBatchRepository(db)
	c.LockSettingRepo = repository.NewLockPaymentSettingRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config
	c.TokenService = service.NewTokenService(cfg.JWT, cfg.PartnerJWT)
	c.LockSettingService = service.NewLockPaymentSettingService(c.LockSettingRepo)
	c.TierService = service.NewTierService(
		c.TierRepo,
		c.PartnerRepo,
		c.CommissionRepo,
		c.AdjustmentRepo,
		c.QueueClient,
		c.Metrics,
		cfg.Cache.TierLadderTTL(),
	)
	c.PartnerService = service.NewPartnerService(c.PartnerRepo, c.VoucherRepo, c.TierService)
	c.CommissionService = service.NewCommissionService(
		c.PartnerRepo,
		c.VoucherRepo,
		c.CommissionRepo,
		c.AdjustmentRepo,
		c.LockSettingService,
		c.TierService,
		c.Metrics,
	)
	c.DashboardService = service.NewDashboardService(
		c.PartnerRepo,
		c.VoucherRepo,
		c.CommissionRepo,
		c.AdjustmentRepo,
		c.PaymentBatchRepo,
		c.WithdrawalRepo,
		c.TierService,
		c.LockSettingService,
		cfg.Cache.DashboardTTL(),
	)

	node, err := snowflake.NewNode(1)
	if err != nil {
		logger.Warnw("provider_init_snowflake_failed", "error", err)
	}
	c.PaymentBatchService = service.NewPaymentBatchService(c.PaymentBatchRepo, c.CommissionRepo, c.WithdrawalRepo, c.CommissionService, node)
	c.WithdrawalService = service.NewWithdrawalService(c.WithdrawalRepo, c.PartnerRepo, c.CommissionRepo)

	// nil 指针不能直接放入接口
	var source orders.Source
	if httpSource := orders.NewHTTPSource(cfg.OrderSource); httpSource != nil {
		source = httpSource
	}
	c.SyncService = service.NewSyncService(source, c.CommissionService, cfg.Jobs.SyncLookback())
}

func (c *Container) initJobs() {
	batchSize := c.Config.Jobs.BatchSize
	c.JobRunner = jobs.NewRunner(c.Metrics,
		jobs.NewLockSweepJob(c.CommissionService, batchSize),
		jobs.NewCommissionSyncJob(c.SyncService),
		jobs.NewTierRecalcJob(c.TierService, batchSize),
	)
}
