package repository

import (
	"errors"

	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdjustmentRepository 统计调整数据访问接口
type AdjustmentRepository interface {
	WithTx(tx *gorm.DB) AdjustmentRepository
	Create(adjustment *models.StatsAdjustment) error
	GetByCommissionRecordID(recordID uint) (*models.StatsAdjustment, error)
	ListByPartner(partnerID uint) ([]models.StatsAdjustment, error)
	SumByPartner(partnerID uint, adjustmentTypes []string) (AdjustmentTotals, error)
}

// GormAdjustmentRepository GORM 统计调整仓储
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewAdjustmentRepository 创建统计调整仓储
func NewAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdjustmentRepository) WithTx(tx *gorm.DB) AdjustmentRepository {
	if tx == nil {
		return r
	}
	return &GormAdjustmentRepository{db: tx}
}

// Create 写入统计调整
func (r *GormAdjustmentRepository) Create(adjustment *models.StatsAdjustment) error {
	return r.db.Create(adjustment).Error
}

// GetByCommissionRecordID 按佣金记录查询调整
func (r *GormAdjustmentRepository) GetByCommissionRecordID(recordID uint) (*models.StatsAdjustment, error) {
	if recordID == 0 {
		return nil, nil
	}
	var row models.StatsAdjustment
	if err := r.db.Where("commission_record_id = ?", recordID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByPartner 查询合作伙伴全部调整
func (r *GormAdjustmentRepository) ListByPartner(partnerID uint) ([]models.StatsAdjustment, error) {
	if partnerID == 0 {
		return []models.StatsAdjustment{}, nil
	}
	var rows []models.StatsAdjustment
	if err := r.db.Where("partner_id = ?", partnerID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumByPartner 汇总合作伙伴的调整，adjustmentTypes 为空时汇总全部类型
func (r *GormAdjustmentRepository) SumByPartner(partnerID uint, adjustmentTypes []string) (AdjustmentTotals, error) {
	totals := AdjustmentTotals{Revenue: decimal.Zero, Commission: decimal.Zero}
	if partnerID == 0 {
		return totals, nil
	}
	query := r.db.Model(&models.StatsAdjustment{}).Where("partner_id = ?", partnerID)
	if len(adjustmentTypes) > 0 {
		query = query.Where("adjustment_type IN ?", adjustmentTypes)
	}
	var row struct {
		Total      int64           `gorm:"column:total"`
		F1         int64           `gorm:"column:f1"`
		Revenue    decimal.Decimal `gorm:"column:revenue"`
		Commission decimal.Decimal `gorm:"column:commission"`
	}
	if err := query.Select("COUNT(*) AS total, COALESCE(SUM(f1_adjustment), 0) AS f1, " +
		"COALESCE(SUM(revenue_adjustment), 0) AS revenue, COALESCE(SUM(commission_adjustment), 0) AS commission").
		Scan(&row).Error; err != nil {
		return totals, err
	}
	totals.Count = row.Total
	totals.F1 = row.F1
	totals.Revenue = row.Revenue.Round(2)
	totals.Commission = row.Commission.Round(2)
	return totals, nil
}
