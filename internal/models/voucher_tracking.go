package models

import "time"

// VoucherTracking 推荐券追踪记录（每个被推荐客户触点一条）
type VoucherTracking struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                              // 主键
	VoucherCode      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"voucher_code"`         // 券码
	PartnerID        uint       `gorm:"not null;index" json:"partner_id"`                                  // 所属合作伙伴
	CustomerRef      string     `gorm:"type:varchar(64);not null;index" json:"customer_ref"`               // 被推荐客户标识
	RecipientName    string     `gorm:"type:varchar(120)" json:"recipient_name"`                           // 客户名称
	RecipientPhone   string     `gorm:"type:varchar(32);index" json:"recipient_phone"`                     // 客户电话
	RecipientEmail   string     `gorm:"type:varchar(255)" json:"recipient_email"`                          // 客户邮箱
	ActivationStatus string     `gorm:"type:varchar(16);not null;index" json:"activation_status"`          // 激活状态
	TierAtReferral   string     `gorm:"type:varchar(32);not null;default:''" json:"tier_at_referral"`      // 推荐建立时的等级快照
	InvoiceCode      string     `gorm:"type:varchar(64);index" json:"invoice_code"`                        // 最近关联发票号
	InvoiceAmount    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"invoice_amount"`       // 最近关联发票金额
	InvoiceStatus    string     `gorm:"type:varchar(16);not null;default:''" json:"invoice_status"`        // 最近关联发票状态
	CommissionStatus string     `gorm:"type:varchar(16);not null;default:''" json:"commission_status"`     // 佣金状态镜像
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`                                            // 激活时间
	UsedAt           *time.Time `json:"used_at,omitempty"`                                                 // 使用时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                        // 更新时间
}

// TableName 指定表名
func (VoucherTracking) TableName() string {
	return "voucher_affiliate_tracking"
}
