package models

import "time"

// LockPaymentSetting 锁定期与付款日配置（单例）
type LockPaymentSetting struct {
	ID             uint      `gorm:"primarykey" json:"id"`                         // 主键，固定为 1
	LockPeriodDays int       `gorm:"not null;default:30" json:"lock_period_days"`  // 合格到锁定的天数
	PaymentDay     int       `gorm:"not null;default:15" json:"payment_day"`       // 每月付款日
	UpdatedAt      time.Time `json:"updated_at"`                                   // 更新时间
}

// TableName 指定表名
func (LockPaymentSetting) TableName() string {
	return "lock_payment_settings"
}
