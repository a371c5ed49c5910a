package repository

import (
	"errors"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockPaymentSettingRepository 锁定与付款配置数据访问接口
type LockPaymentSettingRepository interface {
	Get() (*models.LockPaymentSetting, error)
	Upsert(setting *models.LockPaymentSetting) error
}

// GormLockPaymentSettingRepository GORM 锁定与付款配置仓储
type GormLockPaymentSettingRepository struct {
	db *gorm.DB
}

// NewLockPaymentSettingRepository 创建锁定与付款配置仓储
func NewLockPaymentSettingRepository(db *gorm.DB) *GormLockPaymentSettingRepository {
	return &GormLockPaymentSettingRepository{db: db}
}

// Get 读取单例配置，不存在时返回 nil
func (r *GormLockPaymentSettingRepository) Get() (*models.LockPaymentSetting, error) {
	var row models.LockPaymentSetting
	if err := r.db.First(&row, constants.LockPaymentSettingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Upsert 写入单例配置
func (r *GormLockPaymentSettingRepository) Upsert(setting *models.LockPaymentSetting) error {
	if setting == nil {
		return nil
	}
	setting.ID = constants.LockPaymentSettingID
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lock_period_days", "payment_day", "updated_at"}),
	}).Create(setting).Error
}
