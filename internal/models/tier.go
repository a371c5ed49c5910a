package models

import "time"

// TierDefinition 合作伙伴等级定义
type TierDefinition struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                      // 主键
	TierCode       string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"tier_code"`    // 等级编码
	TierName       string    `gorm:"type:varchar(64);not null" json:"tier_name"`                // 等级名称
	TierLevel      int       `gorm:"uniqueIndex;not null" json:"tier_level"`                    // 等级序号（升序）
	MinReferrals   int       `gorm:"not null;default:0" json:"min_referrals"`                   // 最低推荐客户数
	MinRevenue     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"min_revenue"`  // 最低推荐营收
	FirstOrderRate Rate      `gorm:"type:decimal(10,4);not null;default:0" json:"first_order_rate"` // 首单佣金比例
	LifetimeRate   Rate      `gorm:"type:decimal(10,4);not null;default:0" json:"lifetime_rate"`    // 复购佣金比例
	TierBonusRate  Rate      `gorm:"type:decimal(10,4);not null;default:0" json:"tier_bonus_rate"`  // 等级加成比例
	Benefits       JSON      `gorm:"type:json" json:"benefits"`                                 // 权益描述
	CreatedAt      time.Time `json:"created_at"`                                                // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (TierDefinition) TableName() string {
	return "f0_tiers"
}
