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

// WithdrawalRepository 提现申请数据访问接口
type WithdrawalRepository interface {
	WithTx(tx *gorm.DB) WithdrawalRepository
	Create(req *models.WithdrawalRequest) error
	Update(req *models.WithdrawalRequest) error
	GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error)
	List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error)
	SumPendingByPartner(partnerID uint) (decimal.Decimal, error)
	CompletePendingByPartners(partnerIDs []uint, batchID uint, now time.Time) (int64, error)
}

// GormWithdrawalRepository GORM 提现申请仓储
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现申请仓储
func NewWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: tx}
}

// Create 创建提现申请
func (r *GormWithdrawalRepository) Create(req *models.WithdrawalRequest) error {
	return r.db.Create(req).Error
}

// Update 保存提现申请
func (r *GormWithdrawalRepository) Update(req *models.WithdrawalRequest) error {
	return r.db.Save(req).Error
}

// GetByIDForUpdate 按ID锁定查询提现申请
func (r *GormWithdrawalRepository) GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.WithdrawalRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询提现申请列表
func (r *GormWithdrawalRepository) List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	query := r.db.Model(&models.WithdrawalRequest{}).Preload("Partner")
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	return findPage[models.WithdrawalRequest](query, filter.Page, filter.PageSize, "id desc")
}

// SumPendingByPartner 汇总待审核的提现金额
func (r *GormWithdrawalRepository) SumPendingByPartner(partnerID uint) (decimal.Decimal, error) {
	if partnerID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.WithdrawalRequest{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("partner_id = ? AND status = ?", partnerID, constants.WithdrawalStatusPendingReview).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// CompletePendingByPartners 付款批次完成后结清对应合作伙伴的待审核提现
func (r *GormWithdrawalRepository) CompletePendingByPartners(partnerIDs []uint, batchID uint, now time.Time) (int64, error) {
	if len(partnerIDs) == 0 || batchID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.WithdrawalRequest{}).
		Where("partner_id IN ? AND status = ?", partnerIDs, constants.WithdrawalStatusPendingReview).
		Updates(map[string]interface{}{
			"status":           constants.WithdrawalStatusCompleted,
			"payment_batch_id": batchID,
			"processed_at":     now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
