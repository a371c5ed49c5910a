package models

import "time"

// CommissionRecord 推荐订单佣金记录（每张合格发票一条）
type CommissionRecord struct {
	ID                        uint       `gorm:"primarykey" json:"id"`                                                   // 主键
	PartnerID                 uint       `gorm:"not null;index;index:idx_commission_partner_status,priority:1" json:"partner_id"` // 合作伙伴
	VoucherTrackingID         *uint      `gorm:"index" json:"voucher_tracking_id,omitempty"`                             // 推荐追踪记录
	CustomerRef               string     `gorm:"type:varchar(64);not null;index" json:"customer_ref"`                    // 被推荐客户标识
	CustomerName              string     `gorm:"type:varchar(120)" json:"customer_name"`                                 // 客户名称
	InvoiceCode               string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"invoice_code"`              // 发票号
	InvoiceAmount             Money      `gorm:"type:decimal(20,2);not null;default:0" json:"invoice_amount"`            // 发票金额
	InvoiceDate               time.Time  `gorm:"index" json:"invoice_date"`                                              // 发票日期
	IsFirstOrder              bool       `gorm:"not null;default:false" json:"is_first_order"`                           // 是否首单
	TierCode                  string     `gorm:"type:varchar(32);not null;default:''" json:"tier_code"`                  // 计算时使用的等级
	BasicRate                 Rate       `gorm:"type:decimal(10,4);not null;default:0" json:"basic_rate"`                // 复购比例
	FirstOrderRate            Rate       `gorm:"type:decimal(10,4);not null;default:0" json:"first_order_rate"`          // 首单比例
	TierBonusRate             Rate       `gorm:"type:decimal(10,4);not null;default:0" json:"tier_bonus_rate"`           // 等级加成比例
	BasicAmount               Money      `gorm:"type:decimal(20,2);not null;default:0" json:"basic_amount"`              // 复购佣金
	FirstOrderAmount          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"first_order_amount"`        // 首单佣金
	TierBonusAmount           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"tier_bonus_amount"`         // 等级加成佣金
	TotalCommission           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`          // 佣金合计
	Status                    string     `gorm:"type:varchar(16);not null;index;index:idx_commission_partner_status,priority:2" json:"status"` // 佣金状态
	QualifiedAt               time.Time  `json:"qualified_at"`                                                           // 合格时间
	LockDate                  time.Time  `gorm:"index" json:"lock_date"`                                                 // 计划锁定时间
	LockedAt                  *time.Time `json:"locked_at,omitempty"`                                                    // 实际锁定时间
	PaidAt                    *time.Time `json:"paid_at,omitempty"`                                                      // 付款时间
	PaymentBatchID            *uint      `gorm:"index" json:"payment_batch_id,omitempty"`                                // 付款批次
	InvoiceCancelledAt        *time.Time `json:"invoice_cancelled_at,omitempty"`                                         // 发票取消时间
	InvoiceCancelledAfterPaid bool       `gorm:"not null;default:false" json:"invoice_cancelled_after_paid"`             // 是否付款后取消
	CancelledAt               *time.Time `json:"cancelled_at,omitempty"`                                                 // 佣金取消时间
	CancelReason              string     `gorm:"type:varchar(255)" json:"cancel_reason"`                                 // 取消原因
	CommissionMonth           string     `gorm:"type:varchar(7);not null;index" json:"commission_month"`                 // 所属月份 YYYY-MM
	CreatedAt                 time.Time  `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt                 time.Time  `json:"updated_at"`                                                             // 更新时间
}

// TableName 指定表名
func (CommissionRecord) TableName() string {
	return "commission_records"
}

// CommissionMonthOf 返回发票日期所属的佣金月份
func CommissionMonthOf(t time.Time) string {
	return t.Format("2006-01")
}
