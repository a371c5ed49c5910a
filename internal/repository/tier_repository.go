package repository

import (
	"errors"
	"strings"

	"github.com/partnerhub/internal/models"

	"gorm.io/gorm"
)

// TierRepository 等级定义数据访问接口
type TierRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) TierRepository
	ListOrdered() ([]models.TierDefinition, error)
	GetByCode(code string) (*models.TierDefinition, error)
	Save(tier *models.TierDefinition) error
	Delete(id uint) error
}

// GormTierRepository GORM 等级定义仓储
type GormTierRepository struct {
	db *gorm.DB
}

// NewTierRepository 创建等级定义仓储
func NewTierRepository(db *gorm.DB) *GormTierRepository {
	return &GormTierRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTierRepository) WithTx(tx *gorm.DB) TierRepository {
	if tx == nil {
		return r
	}
	return &GormTierRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTierRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// ListOrdered 按等级升序返回全部等级
func (r *GormTierRepository) ListOrdered() ([]models.TierDefinition, error) {
	var rows []models.TierDefinition
	if err := r.db.Order("tier_level asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByCode 按编码获取等级
func (r *GormTierRepository) GetByCode(code string) (*models.TierDefinition, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var row models.TierDefinition
	if err := r.db.Where("tier_code = ?", normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Save 新增或更新等级
func (r *GormTierRepository) Save(tier *models.TierDefinition) error {
	return r.db.Save(tier).Error
}

// Delete 删除等级
func (r *GormTierRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.TierDefinition{}, id).Error
}
