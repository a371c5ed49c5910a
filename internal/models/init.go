package models

import (
	"errors"

	"github.com/partnerhub/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLockPeriodDays 默认锁定期天数
const DefaultLockPeriodDays = 30

// DefaultPaymentDay 默认每月付款日
const DefaultPaymentDay = 15

// InitDefaultLockPaymentSetting 初始化锁定与付款配置单例
func InitDefaultLockPaymentSetting(db *gorm.DB) error {
	if db == nil {
		db = DB
	}
	var existing LockPaymentSetting
	err := db.First(&existing, 1).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row := LockPaymentSetting{
		ID:             1,
		LockPeriodDays: DefaultLockPeriodDays,
		PaymentDay:     DefaultPaymentDay,
	}
	if err := db.Create(&row).Error; err != nil {
		return err
	}
	logger.Infow("default_lock_payment_setting_created",
		"lock_period_days", row.LockPeriodDays,
		"payment_day", row.PaymentDay,
	)
	return nil
}

// DefaultTierLadder 默认等级阶梯
func DefaultTierLadder() []TierDefinition {
	return []TierDefinition{
		{
			TierCode:       "SILVER",
			TierName:       "Silver",
			TierLevel:      1,
			MinReferrals:   0,
			MinRevenue:     NewMoneyFromDecimal(decimal.Zero),
			FirstOrderRate: NewRateFromDecimal(decimal.RequireFromString("0.10")),
			LifetimeRate:   NewRateFromDecimal(decimal.RequireFromString("0.05")),
			TierBonusRate:  NewRateFromDecimal(decimal.Zero),
			Benefits:       JSON{"description": "base tier"},
		},
		{
			TierCode:       "GOLD",
			TierName:       "Gold",
			TierLevel:      2,
			MinReferrals:   11,
			MinRevenue:     NewMoneyFromDecimal(decimal.NewFromInt(50000000)),
			FirstOrderRate: NewRateFromDecimal(decimal.RequireFromString("0.10")),
			LifetimeRate:   NewRateFromDecimal(decimal.RequireFromString("0.05")),
			TierBonusRate:  NewRateFromDecimal(decimal.RequireFromString("0.02")),
			Benefits:       JSON{"description": "priority support"},
		},
		{
			TierCode:       "DIAMOND",
			TierName:       "Diamond",
			TierLevel:      3,
			MinReferrals:   31,
			MinRevenue:     NewMoneyFromDecimal(decimal.NewFromInt(200000000)),
			FirstOrderRate: NewRateFromDecimal(decimal.RequireFromString("0.10")),
			LifetimeRate:   NewRateFromDecimal(decimal.RequireFromString("0.05")),
			TierBonusRate:  NewRateFromDecimal(decimal.RequireFromString("0.05")),
			Benefits:       JSON{"description": "dedicated manager"},
		},
	}
}

// InitDefaultTiers 等级表为空时写入默认阶梯
func InitDefaultTiers(db *gorm.DB) error {
	if db == nil {
		db = DB
	}
	var count int64
	if err := db.Model(&TierDefinition{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tiers := DefaultTierLadder()
	if err := db.Create(&tiers).Error; err != nil {
		return err
	}
	logger.Infow("default_tiers_created", "count", len(tiers))
	return nil
}
