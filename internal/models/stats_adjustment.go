package models

import "time"

// StatsAdjustment 发票取消产生的统计冲正记录，只增不改
type StatsAdjustment struct {
	ID                   uint      `gorm:"primarykey" json:"id"`                                               // 主键
	PartnerID            uint      `gorm:"not null;index" json:"partner_id"`                                   // 合作伙伴
	CommissionRecordID   uint      `gorm:"not null;uniqueIndex" json:"commission_record_id"`                   // 对应佣金记录
	InvoiceCode          string    `gorm:"type:varchar(64);not null;index" json:"invoice_code"`                // 发票号
	AdjustmentType       string    `gorm:"type:varchar(40);not null;index" json:"adjustment_type"`             // 调整类型
	F1Adjustment         int       `gorm:"not null;default:0" json:"f1_adjustment"`                            // 推荐客户数变化
	RevenueAdjustment    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"revenue_adjustment"`    // 营收变化
	CommissionAdjustment Money     `gorm:"type:decimal(20,2);not null;default:0" json:"commission_adjustment"` // 佣金变化
	Reason               string    `gorm:"type:varchar(255)" json:"reason"`                                    // 原因
	CreatedAt            time.Time `gorm:"index" json:"created_at"`                                            // 创建时间
}

// TableName 指定表名
func (StatsAdjustment) TableName() string {
	return "f0_stats_adjustments"
}
