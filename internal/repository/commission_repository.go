package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金记录数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	Create(record *models.CommissionRecord) error
	GetByID(id uint) (*models.CommissionRecord, error)
	GetByIDForUpdate(id uint) (*models.CommissionRecord, error)
	GetByInvoiceCode(code string) (*models.CommissionRecord, error)
	GetByInvoiceCodeForUpdate(code string) (*models.CommissionRecord, error)
	List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error)
	ListByPartner(partnerID uint, statuses []string) ([]models.CommissionRecord, error)
	ListByPartnerCustomers(partnerID uint, customerRefs []string) ([]models.CommissionRecord, error)
	ListByBatch(batchID, partnerID uint) ([]models.CommissionRecord, error)

	TransitionStatus(id uint, expected []string, updates map[string]interface{}) (bool, error)
	MarkCancelledAfterPaid(id uint, cancelledAt, now time.Time, reason string) (bool, error)
	ListDueForLock(now time.Time, limit int) ([]models.CommissionRecord, error)
	ListPayableForUpdate(filter PayableCommissionFilter) ([]models.CommissionRecord, error)

	HasActiveForCustomer(partnerID uint, customerRef string, excludeID uint) (bool, error)
	CountQualifyingForCustomer(partnerID uint, customerRef string) (int64, error)
	GetQualificationAggregate(partnerID uint) (QualificationAggregate, error)
	SumByPartner(partnerID uint, statuses []string, unbatchedOnly bool) (decimal.Decimal, error)
	ListPartnerBatches(partnerID uint) ([]PartnerBatchRow, error)
}

// GormCommissionRepository GORM 佣金记录仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金记录仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(record *models.CommissionRecord) error {
	return r.db.Create(record).Error
}

// GetByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.CommissionRecord
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByIDForUpdate 按ID锁定查询佣金记录
func (r *GormCommissionRepository) GetByIDForUpdate(id uint) (*models.CommissionRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.CommissionRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByInvoiceCode 按发票号获取佣金记录
func (r *GormCommissionRepository) GetByInvoiceCode(code string) (*models.CommissionRecord, error) {
	return r.getByInvoiceCode(r.db, code)
}

// GetByInvoiceCodeForUpdate 按发票号锁定查询佣金记录
func (r *GormCommissionRepository) GetByInvoiceCodeForUpdate(code string) (*models.CommissionRecord, error) {
	return r.getByInvoiceCode(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), code)
}

func (r *GormCommissionRepository) getByInvoiceCode(db *gorm.DB, code string) (*models.CommissionRecord, error) {
	normalized := strings.TrimSpace(code)
	if normalized == "" {
		return nil, nil
	}
	var row models.CommissionRecord
	if err := db.Where("invoice_code = ?", normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	query := r.db.Model(&models.CommissionRecord{})
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if code := strings.TrimSpace(filter.InvoiceCode); code != "" {
		query = applyLikeSearch(query, code, "invoice_code")
	}
	if month := strings.TrimSpace(filter.CommissionMonth); month != "" {
		query = query.Where("commission_month = ?", month)
	}
	if filter.PaymentBatchID != 0 {
		query = query.Where("payment_batch_id = ?", filter.PaymentBatchID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return findPage[models.CommissionRecord](query, filter.Page, filter.PageSize, "id desc")
}

// ListByPartner 查询合作伙伴全部佣金记录
func (r *GormCommissionRepository) ListByPartner(partnerID uint, statuses []string) ([]models.CommissionRecord, error) {
	if partnerID == 0 {
		return []models.CommissionRecord{}, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).Where("partner_id = ?", partnerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.CommissionRecord
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByPartnerCustomers 查询合作伙伴指定客户的佣金记录
func (r *GormCommissionRepository) ListByPartnerCustomers(partnerID uint, customerRefs []string) ([]models.CommissionRecord, error) {
	if partnerID == 0 || len(customerRefs) == 0 {
		return []models.CommissionRecord{}, nil
	}
	var rows []models.CommissionRecord
	if err := r.db.Where("partner_id = ? AND customer_ref IN ?", partnerID, customerRefs).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByBatch 查询付款批次中的佣金记录，partnerID 为 0 时返回整个批次
func (r *GormCommissionRepository) ListByBatch(batchID, partnerID uint) ([]models.CommissionRecord, error) {
	if batchID == 0 {
		return []models.CommissionRecord{}, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).Where("payment_batch_id = ?", batchID)
	if partnerID != 0 {
		query = query.Where("partner_id = ?", partnerID)
	}
	var rows []models.CommissionRecord
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionStatus 条件更新佣金状态，仅当当前状态属于 expected 时生效
func (r *GormCommissionRepository) TransitionStatus(id uint, expected []string, updates map[string]interface{}) (bool, error) {
	if id == 0 || len(expected) == 0 || len(updates) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelledAfterPaid 标记已付款佣金的发票被取消，状态保持 paid
func (r *GormCommissionRepository) MarkCancelledAfterPaid(id uint, cancelledAt, now time.Time, reason string) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ? AND invoice_cancelled_after_paid = ?", id, constants.CommissionStatusPaid, false).
		Updates(map[string]interface{}{
			"invoice_cancelled_after_paid": true,
			"invoice_cancelled_at":         cancelledAt,
			"cancel_reason":                reason,
			"updated_at":                   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListDueForLock 查询锁定期已到的待锁定佣金
func (r *GormCommissionRepository) ListDueForLock(now time.Time, limit int) ([]models.CommissionRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.CommissionRecord
	if err := r.db.Where("status = ? AND lock_date <= ? AND invoice_cancelled_at IS NULL",
		constants.CommissionStatusPending, now).
		Order("lock_date asc, id asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPayableForUpdate 锁定查询可付款的佣金（已锁定且未入批次）
func (r *GormCommissionRepository) ListPayableForUpdate(filter PayableCommissionFilter) ([]models.CommissionRecord, error) {
	query := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND payment_batch_id IS NULL", constants.CommissionStatusLocked)
	if len(filter.PartnerIDs) > 0 {
		query = query.Where("partner_id IN ?", filter.PartnerIDs)
	}
	if len(filter.RecordIDs) > 0 {
		query = query.Where("id IN ?", filter.RecordIDs)
	}
	if month := strings.TrimSpace(filter.MonthUntil); month != "" {
		query = query.Where("commission_month <= ?", month)
	}
	if filter.LockedBefore != nil {
		query = query.Where("locked_at <= ?", *filter.LockedBefore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []models.CommissionRecord
	if err := query.Order("partner_id asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// HasActiveForCustomer 客户是否已有未取消的佣金记录
func (r *GormCommissionRepository) HasActiveForCustomer(partnerID uint, customerRef string, excludeID uint) (bool, error) {
	ref := strings.TrimSpace(customerRef)
	if partnerID == 0 || ref == "" {
		return false, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).
		Where("partner_id = ? AND customer_ref = ? AND status <> ?", partnerID, ref, constants.CommissionStatusCancelled)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// CountQualifyingForCustomer 统计客户仍计入资格的佣金记录数（locked/paid 且未在付款后取消）
func (r *GormCommissionRepository) CountQualifyingForCustomer(partnerID uint, customerRef string) (int64, error) {
	ref := strings.TrimSpace(customerRef)
	if partnerID == 0 || ref == "" {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.CommissionRecord{}).
		Where("partner_id = ? AND customer_ref = ? AND status IN ? AND invoice_cancelled_after_paid = ?",
			partnerID, ref, qualifyingStatuses(), false).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// GetQualificationAggregate 统计 locked/paid 记录的营收与去重客户数；付款后取消的记录计入营收（由调整抵扣），不计入客户数
func (r *GormCommissionRepository) GetQualificationAggregate(partnerID uint) (QualificationAggregate, error) {
	result := QualificationAggregate{Revenue: decimal.Zero}
	if partnerID == 0 {
		return result, nil
	}
	var row struct {
		Referrals int64           `gorm:"column:referrals"`
		Revenue   decimal.Decimal `gorm:"column:revenue"`
	}
	if err := r.db.Model(&models.CommissionRecord{}).
		Select("COUNT(DISTINCT CASE WHEN invoice_cancelled_after_paid = ? THEN customer_ref END) AS referrals, "+
			"COALESCE(SUM(invoice_amount), 0) AS revenue", false).
		Where("partner_id = ? AND status IN ?", partnerID, qualifyingStatuses()).
		Scan(&row).Error; err != nil {
		return result, err
	}
	result.ReferralCount = row.Referrals
	result.Revenue = row.Revenue.Round(2)
	return result, nil
}

// SumByPartner 汇总指定状态佣金金额
func (r *GormCommissionRepository) SumByPartner(partnerID uint, statuses []string, unbatchedOnly bool) (decimal.Decimal, error) {
	if partnerID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).
		Where("partner_id = ? AND status IN ?", partnerID, statuses)
	if unbatchedOnly {
		query = query.Where("payment_batch_id IS NULL")
	}

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(total_commission), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// ListPartnerBatches 按付款批次汇总合作伙伴的已付款佣金
func (r *GormCommissionRepository) ListPartnerBatches(partnerID uint) ([]PartnerBatchRow, error) {
	if partnerID == 0 {
		return []PartnerBatchRow{}, nil
	}
	var rows []PartnerBatchRow
	if err := r.db.Model(&models.CommissionRecord{}).
		Select("payment_batch_id, COUNT(*) AS record_count, COALESCE(SUM(total_commission), 0) AS total_amount, COALESCE(SUM(invoice_amount), 0) AS invoice_amount").
		Where("partner_id = ? AND payment_batch_id IS NOT NULL", partnerID).
		Group("payment_batch_id").
		Order("payment_batch_id desc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func qualifyingStatuses() []string {
	return []string{constants.CommissionStatusLocked, constants.CommissionStatusPaid}
}
