package app

import (
	"fmt"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
)

// InitStore 连接数据库、迁移表结构并补齐默认等级与锁定配置；重复执行不会覆盖已有数据
func InitStore(cfg *config.Config) error {
	pool := cfg.Database.Pool
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           pool.MaxOpenConns,
		MaxIdleConns:           pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	if err := models.Migrate(models.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := models.InitDefaultTiers(models.DB); err != nil {
		return fmt.Errorf("seed tiers: %w", err)
	}
	if err := models.InitDefaultLockPaymentSetting(models.DB); err != nil {
		return fmt.Errorf("seed lock setting: %w", err)
	}
	logger.Infow("store_ready", "driver", cfg.Database.Driver)
	return nil
}
