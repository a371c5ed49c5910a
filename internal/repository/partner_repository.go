package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/partnerhub/internal/models"

	"gorm.io/gorm"
)

// PartnerRepository 合作伙伴数据访问接口
type PartnerRepository interface {
	WithTx(tx *gorm.DB) PartnerRepository
	Create(partner *models.Partner) error
	GetByID(id uint) (*models.Partner, error)
	GetByCode(code string) (*models.Partner, error)
	List(filter PartnerListFilter) ([]models.Partner, int64, error)
	ListIDsAfter(afterID uint, limit int) ([]uint, error)
	Update(partner *models.Partner) error
	UpdateCurrentTier(id uint, fromTier, toTier string, updatedAt time.Time) (bool, error)
}

// GormPartnerRepository GORM 合作伙伴仓储
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建合作伙伴仓储
func NewPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPartnerRepository) WithTx(tx *gorm.DB) PartnerRepository {
	if tx == nil {
		return r
	}
	return &GormPartnerRepository{db: tx}
}

// Create 创建合作伙伴
func (r *GormPartnerRepository) Create(partner *models.Partner) error {
	return r.db.Create(partner).Error
}

// GetByID 按ID获取合作伙伴
func (r *GormPartnerRepository) GetByID(id uint) (*models.Partner, error) {
	if id == 0 {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.First(&partner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByCode 按合作伙伴编码获取
func (r *GormPartnerRepository) GetByCode(code string) (*models.Partner, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.Where("partner_code = ?", normalized).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// List 查询合作伙伴列表
func (r *GormPartnerRepository) List(filter PartnerListFilter) ([]models.Partner, int64, error) {
	query := r.db.Model(&models.Partner{})
	query = applyLikeSearch(query, filter.Keyword, "partner_code", "full_name", "phone", "email")
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("current_tier = ?", strings.ToUpper(tier))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	return findPage[models.Partner](query, filter.Page, filter.PageSize, "id desc")
}

// ListIDsAfter 按主键游标批量获取合作伙伴ID
func (r *GormPartnerRepository) ListIDsAfter(afterID uint, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 200
	}
	var ids []uint
	if err := r.db.Model(&models.Partner{}).
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Update 保存合作伙伴
func (r *GormPartnerRepository) Update(partner *models.Partner) error {
	return r.db.Save(partner).Error
}

// UpdateCurrentTier 条件更新缓存等级，仅当等级仍为 fromTier 时写入
func (r *GormPartnerRepository) UpdateCurrentTier(id uint, fromTier, toTier string, updatedAt time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Partner{}).
		Where("id = ? AND current_tier = ?", id, fromTier).
		Updates(map[string]interface{}{
			"current_tier": toTier,
			"updated_at":   updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
