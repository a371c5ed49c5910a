package main

import (
	"flag"
	"fmt"

	"github.com/partnerhub/internal/app"
	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/service"
)

func main() {
	var (
		adminSubject string
		demoCode     string
	)
	flag.StringVar(&adminSubject, "admin-token", "", "为指定 subject 签发管理端令牌（仅用于本地调试）")
	flag.StringVar(&demoCode, "demo-partner", "", "创建并审核一个演示合作伙伴，值为合作伙伴编码")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions("seed"))
	defer logger.Sync()
	stdLog := logger.StdLogger()

	// 连接数据库、迁移、默认等级与锁定配置
	if err := app.InitStore(cfg); err != nil {
		stdLog.Fatalf("Failed to init store: %v", err)
	}

	var tiers []models.TierDefinition
	if err := models.DB.Order("tier_level ASC").Find(&tiers).Error; err != nil {
		stdLog.Fatalf("Failed to load tiers: %v", err)
	}
	for _, tier := range tiers {
		stdLog.Printf("tier %-10s level=%d min_referrals=%d min_revenue=%s first=%s lifetime=%s bonus=%s",
			tier.TierCode, tier.TierLevel, tier.MinReferrals, tier.MinRevenue.String(),
			tier.FirstOrderRate.String(), tier.LifetimeRate.String(), tier.TierBonusRate.String())
	}

	tokens := service.NewTokenService(cfg.JWT, cfg.PartnerJWT)

	if demoCode != "" {
		seedDemoPartner(cfg, tokens, demoCode)
	}

	if adminSubject != "" {
		if cfg.Server.IsRelease() {
			stdLog.Fatalf("refusing to print admin token in release mode")
		}
		token, expiresAt, err := tokens.IssueAdminToken(adminSubject)
		if err != nil {
			stdLog.Fatalf("Failed to issue admin token: %v", err)
		}
		fmt.Printf("admin token (expires %s):\n%s\n", expiresAt.Format("2006-01-02 15:04"), token)
	}

	stdLog.Printf("Seed completed")
}

func seedDemoPartner(cfg *config.Config, tokens *service.TokenService, code string) {
	stdLog := logger.StdLogger()
	var partner models.Partner
	err := models.DB.Where("partner_code = ?", code).First(&partner).Error
	if err != nil {
		partner = models.Partner{
			PartnerCode: code,
			FullName:    "Demo Partner " + code,
			IsActive:    true,
			IsApproved:  true,
			CurrentTier: models.DefaultTierLadder()[0].TierCode,
		}
		if err := models.DB.Create(&partner).Error; err != nil {
			stdLog.Fatalf("Failed to create demo partner: %v", err)
		}
		stdLog.Printf("Created demo partner: %s (id=%d)", partner.PartnerCode, partner.ID)
	} else {
		stdLog.Printf("Demo partner already exists: %s (id=%d)", partner.PartnerCode, partner.ID)
	}
	if cfg.Server.IsRelease() {
		return
	}
	token, _, err := tokens.IssuePartnerToken(partner.ID, partner.PartnerCode)
	if err != nil {
		stdLog.Fatalf("Failed to issue partner token: %v", err)
	}
	fmt.Printf("partner token for %s:\n%s\n", partner.PartnerCode, token)
}
