package models

import "time"

// WithdrawalRequest 合作伙伴提现申请
type WithdrawalRequest struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                   // 主键
	PartnerID      uint       `gorm:"not null;index" json:"partner_id"`                       // 合作伙伴
	Amount         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`    // 申请金额
	Status         string     `gorm:"type:varchar(32);not null;index" json:"status"`          // 申请状态
	PaymentBatchID *uint      `gorm:"index" json:"payment_batch_id,omitempty"`                // 完成时的付款批次
	RejectReason   string     `gorm:"type:varchar(255)" json:"reject_reason"`                 // 驳回原因
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`                                 // 处理时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                             // 更新时间

	Partner *Partner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"` // 合作伙伴
}

// TableName 指定表名
func (WithdrawalRequest) TableName() string {
	return "f0_withdrawal_requests"
}
