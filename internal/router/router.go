package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/config"
	adminhandlers "github.com/partnerhub/internal/http/handlers/admin"
	publichandlers "github.com/partnerhub/internal/http/handlers/public"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/provider"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Named("http")
	r := gin.New()

	// 初始化 Handler（按外部回调/合作伙伴/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	webhookRule := RateLimitRule{
		Prefix:        cache.Prefix() + ":rate:webhook",
		WindowSeconds: cfg.Webhook.RateLimitWindow,
		MaxRequests:   cfg.Webhook.RateLimitMax,
		BlockSeconds:  cfg.Webhook.RateLimitBlock,
		RealStatus:    true,
	}

	// 中间件
	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 外部订单系统回调（HMAC 签名）
		webhooks := apiV1.Group("/webhooks")
		webhooks.Use(RateLimitMiddleware(cache.Client(), webhookRule, KeyByIP))
		{
			webhooks.POST("/orders", publicHandler.OrderWebhook)
			webhooks.POST("/invoice-cancelled", publicHandler.InvoiceCancelledWebhook)
		}

		// 合作伙伴接口（需鉴权）
		partner := apiV1.Group("/partner")
		partner.Use(PartnerAuthMiddleware(c.TokenService, c.PartnerRepo))
		{
			partner.GET("/dashboard", publicHandler.GetDashboard)
			partner.GET("/customers", publicHandler.ListCustomers)
			partner.GET("/payments", publicHandler.GetPaymentHistory)
			partner.POST("/withdrawals", publicHandler.ApplyWithdrawal)
			partner.GET("/withdrawals", publicHandler.ListWithdrawals)
		}

		// 管理员接口（需鉴权）
		admin := apiV1.Group("/admin")
		admin.Use(AdminAuthMiddleware(c.TokenService))
		{
			// 合作伙伴
			admin.GET("/partners", adminHandler.ListPartners)
			admin.POST("/partners", adminHandler.CreatePartner)
			admin.GET("/partners/:id", adminHandler.GetPartner)
			admin.POST("/partners/:id/approve", adminHandler.ApprovePartner)
			admin.PUT("/partners/:id/status", adminHandler.UpdatePartnerStatus)
			admin.GET("/partners/:id/tier", adminHandler.GetPartnerTier)
			admin.POST("/partners/:id/tier/recalculate", adminHandler.RecalculatePartnerTier)
			admin.POST("/partners/:id/token", adminHandler.IssuePartnerToken)
			admin.POST("/partners/:id/vouchers", adminHandler.IssueVoucher)

			// 推荐券
			admin.GET("/vouchers", adminHandler.ListVouchers)
			admin.POST("/vouchers/:code/activate", adminHandler.ActivateVoucher)

			// 等级与锁定设置
			admin.GET("/tiers", adminHandler.ListTiers)
			admin.PUT("/tiers/:code", adminHandler.UpsertTier)
			admin.DELETE("/tiers/:code", adminHandler.DeleteTier)
			admin.GET("/settings/lock-payment", adminHandler.GetLockPaymentSetting)
			admin.PUT("/settings/lock-payment", adminHandler.UpdateLockPaymentSetting)

			// 佣金记录
			admin.GET("/commissions", adminHandler.ListCommissions)
			admin.GET("/commissions/:id", adminHandler.GetCommission)
			admin.POST("/commissions/:id/transition", adminHandler.TransitionCommission)

			// 付款批次
			admin.GET("/payment-batches", adminHandler.ListPaymentBatches)
			admin.POST("/payment-batches", adminHandler.CreatePaymentBatch)
			admin.GET("/payment-batches/:id", adminHandler.GetPaymentBatch)
			admin.POST("/payment-batches/:id/records", adminHandler.AttachToPaymentBatch)
			admin.POST("/payment-batches/:id/complete", adminHandler.CompletePaymentBatch)

			// 提现审核
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdrawals/:id/review", adminHandler.ReviewWithdrawal)

			// 维护任务
			admin.GET("/jobs", adminHandler.ListJobs)
			admin.POST("/jobs/:name", adminHandler.RunJob)
		}
	}

	if c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/healthz", healthCheck)

	return r
}

func healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "disabled"}
	healthy := true
	if models.DB == nil {
		checks["database"] = "unavailable"
		healthy = false
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		healthy = false
	}
	if cache.Enabled() {
		checks["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
			healthy = false
		}
	}

	status := http.StatusOK
	checks["status"] = "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		checks["status"] = "degraded"
	}
	c.JSON(status, checks)
}
