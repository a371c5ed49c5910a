package constants

// 佣金记录状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusLocked    = "locked"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

// 佣金状态迁移事件常量
const (
	CommissionEventLock   = "lock"
	CommissionEventPay    = "pay"
	CommissionEventCancel = "cancel"
)

// 统计调整类型常量
const (
	AdjustmentTypeCancelledBeforePaid = "INVOICE_CANCELLED_BEFORE_PAID"
	AdjustmentTypeCancelledAfterPaid  = "INVOICE_CANCELLED_AFTER_PAID"
)

// 发票状态常量（来自外部订单源）
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCompleted = "completed"
	InvoiceStatusCancelled = "cancelled"
)

// 推荐券激活状态常量
const (
	VoucherStatusIssued    = "issued"
	VoucherStatusActivated = "activated"
	VoucherStatusUsed      = "used"
)

// 付款批次状态常量
const (
	PaymentBatchStatusOpen      = "open"
	PaymentBatchStatusCompleted = "completed"
)

// 提现申请状态常量
const (
	WithdrawalStatusPendingReview = "pending_review"
	WithdrawalStatusRejected      = "rejected"
	WithdrawalStatusCompleted     = "completed"
)

// 提现审核动作常量
const (
	WithdrawalActionReject = "reject"
)

// 付款历史查询动作
const (
	PaymentHistoryActionList   = "list"
	PaymentHistoryActionDetail = "detail"
)

// 鉴权角色
const (
	RoleAdmin   = "admin"
	RolePartner = "partner"
)

// 默认等级编码
const (
	TierCodeSilver  = "SILVER"
	TierCodeGold    = "GOLD"
	TierCodeDiamond = "DIAMOND"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskCommissionLockSweep = "commission:lock_sweep"
	TaskCommissionSync      = "commission:sync"
	TaskPartnerTierRecalc   = "partner:tier_recalc"
	TaskTierRecalcAll       = "partner:tier_recalc_all"
)

// 维护任务名称
const (
	JobLockSweep      = "lock_sweep"
	JobCommissionSync = "commission_sync"
	JobTierRecalc     = "tier_recalc"
)

// LockPaymentSettingID 锁定与付款配置单例主键
const LockPaymentSettingID uint = 1
