package repository

import (
	"errors"
	"strings"

	"github.com/partnerhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentBatchRepository 付款批次数据访问接口
type PaymentBatchRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PaymentBatchRepository
	Create(batch *models.PaymentBatch) error
	Update(batch *models.PaymentBatch) error
	GetByID(id uint) (*models.PaymentBatch, error)
	GetByIDForUpdate(id uint) (*models.PaymentBatch, error)
	GetByIDs(ids []uint) (map[uint]models.PaymentBatch, error)
	List(filter PaymentBatchListFilter) ([]models.PaymentBatch, int64, error)
}

// GormPaymentBatchRepository GORM 付款批次仓储
type GormPaymentBatchRepository struct {
	db *gorm.DB
}

// NewPaymentBatchRepository 创建付款批次仓储
func NewPaymentBatchRepository(db *gorm.DB) *GormPaymentBatchRepository {
	return &GormPaymentBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentBatchRepository) WithTx(tx *gorm.DB) PaymentBatchRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentBatchRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPaymentBatchRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建付款批次
func (r *GormPaymentBatchRepository) Create(batch *models.PaymentBatch) error {
	return r.db.Create(batch).Error
}

// Update 保存付款批次
func (r *GormPaymentBatchRepository) Update(batch *models.PaymentBatch) error {
	return r.db.Save(batch).Error
}

// GetByID 按ID获取付款批次
func (r *GormPaymentBatchRepository) GetByID(id uint) (*models.PaymentBatch, error) {
	return r.getByID(r.db, id)
}

// GetByIDForUpdate 按ID锁定查询付款批次
func (r *GormPaymentBatchRepository) GetByIDForUpdate(id uint) (*models.PaymentBatch, error) {
	return r.getByID(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentBatchRepository) getByID(db *gorm.DB, id uint) (*models.PaymentBatch, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.PaymentBatch
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByIDs 批量获取付款批次
func (r *GormPaymentBatchRepository) GetByIDs(ids []uint) (map[uint]models.PaymentBatch, error) {
	result := make(map[uint]models.PaymentBatch, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.PaymentBatch
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}

// List 查询付款批次列表
func (r *GormPaymentBatchRepository) List(filter PaymentBatchListFilter) ([]models.PaymentBatch, int64, error) {
	query := r.db.Model(&models.PaymentBatch{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	query = applyLikeSearch(query, filter.Code, "batch_code")
	return findPage[models.PaymentBatch](query, filter.Page, filter.PageSize, "id desc")
}
