package models

import "time"

// Partner 推广合作伙伴（F0）
type Partner struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                         // 主键
	PartnerCode       string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"partner_code"`    // 合作伙伴编码
	FullName          string     `gorm:"type:varchar(120);not null" json:"full_name"`                  // 显示名称
	Phone             string     `gorm:"type:varchar(32);index" json:"phone"`                          // 联系电话
	Email             string     `gorm:"type:varchar(255);index" json:"email"`                         // 联系邮箱
	BankName          string     `gorm:"type:varchar(120)" json:"bank_name"`                           // 开户行
	BankAccountNumber string     `gorm:"type:varchar(64)" json:"bank_account_number"`                  // 银行账号
	BankAccountName   string     `gorm:"type:varchar(120)" json:"bank_account_name"`                   // 户名
	IsActive          bool       `gorm:"not null;default:true;index" json:"is_active"`                 // 是否启用
	IsApproved        bool       `gorm:"not null;default:false;index" json:"is_approved"`              // 是否审核通过
	CurrentTier       string     `gorm:"type:varchar(32);not null;default:'';index" json:"current_tier"` // 当前等级（缓存）
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`                                        // 审核通过时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (Partner) TableName() string {
	return "f0_partners"
}

// Eligible 是否可以产生佣金
func (p *Partner) Eligible() bool {
	return p != nil && p.IsActive && p.IsApproved
}
