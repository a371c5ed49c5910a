package models

import "time"

// PaymentBatch 佣金付款批次
type PaymentBatch struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                         // 主键
	BatchCode    string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"batch_code"`      // 批次编号
	PaymentDate  time.Time  `gorm:"index" json:"payment_date"`                                    // 付款日期
	TotalAmount  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 批次总金额
	RecordCount  int        `gorm:"not null;default:0" json:"record_count"`                       // 佣金记录数
	PartnerCount int        `gorm:"not null;default:0" json:"partner_count"`                      // 涉及合作伙伴数
	Status       string     `gorm:"type:varchar(16);not null;index" json:"status"`                // 批次状态
	Note         string     `gorm:"type:varchar(255)" json:"note"`                                // 备注
	CreatedBy    string     `gorm:"type:varchar(64)" json:"created_by"`                           // 发起人
	CompletedAt  *time.Time `json:"completed_at,omitempty"`                                       // 完成时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (PaymentBatch) TableName() string {
	return "payment_batches"
}
