package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartnerListFilter 查询合作伙伴列表的过滤条件
type PartnerListFilter struct {
	Page       int
	PageSize   int
	Keyword    string
	Tier       string
	IsActive   *bool
	IsApproved *bool
}

// VoucherListFilter 查询推荐券列表的过滤条件
type VoucherListFilter struct {
	Page             int
	PageSize         int
	PartnerID        uint
	ActivationStatus string
	Keyword          string
}

// CommissionListFilter 查询佣金记录列表的过滤条件
type CommissionListFilter struct {
	Page            int
	PageSize        int
	PartnerID       uint
	Status          string
	InvoiceCode     string
	CommissionMonth string
	PaymentBatchID  uint
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// PayableCommissionFilter 选择可付款佣金的条件
type PayableCommissionFilter struct {
	PartnerIDs   []uint
	RecordIDs    []uint
	MonthUntil   string
	LockedBefore *time.Time
	Limit        int
}

// CustomerListFilter 查询合作伙伴名下客户的条件
type CustomerListFilter struct {
	Page        int
	PageSize    int
	PartnerID   uint
	SearchPhone string
}

// PaymentBatchListFilter 查询付款批次列表的过滤条件
type PaymentBatchListFilter struct {
	Page     int
	PageSize int
	Status   string
	Code     string
}

// WithdrawalListFilter 查询提现申请列表的过滤条件
type WithdrawalListFilter struct {
	Page      int
	PageSize  int
	PartnerID uint
	Status    string
}

// QualificationAggregate 等级资格原始统计
type QualificationAggregate struct {
	ReferralCount int64
	Revenue       decimal.Decimal
}

// AdjustmentTotals 统计调整汇总
type AdjustmentTotals struct {
	Count      int64
	F1         int64
	Revenue    decimal.Decimal
	Commission decimal.Decimal
}

// CustomerRow 合作伙伴名下客户基础信息
type CustomerRow struct {
	CustomerRef    string `gorm:"column:customer_ref"`
	RecipientName  string `gorm:"column:recipient_name"`
	RecipientPhone string `gorm:"column:recipient_phone"`
	FirstVoucherID uint   `gorm:"column:first_voucher_id"`
}

// PartnerBatchRow 合作伙伴在某个付款批次中的汇总
type PartnerBatchRow struct {
	PaymentBatchID uint            `gorm:"column:payment_batch_id"`
	RecordCount    int64           `gorm:"column:record_count"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount"`
	InvoiceAmount  decimal.Decimal `gorm:"column:invoice_amount"`
}
