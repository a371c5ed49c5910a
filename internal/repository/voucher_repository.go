package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/partnerhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherRepository 推荐券追踪数据访问接口
type VoucherRepository interface {
	WithTx(tx *gorm.DB) VoucherRepository
	Create(voucher *models.VoucherTracking) error
	GetByID(id uint) (*models.VoucherTracking, error)
	GetByCode(code string) (*models.VoucherTracking, error)
	GetLatestByCustomerForUpdate(partnerID uint, customerRef string) (*models.VoucherTracking, error)
	Update(voucher *models.VoucherTracking) error
	UpdateCommissionMirror(id uint, commissionStatus, invoiceStatus string, updatedAt time.Time) error
	List(filter VoucherListFilter) ([]models.VoucherTracking, int64, error)
	ListCustomers(filter CustomerListFilter) ([]CustomerRow, int64, error)
}

// GormVoucherRepository GORM 推荐券追踪仓储
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建推荐券追踪仓储
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) VoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// Create 创建推荐券
func (r *GormVoucherRepository) Create(voucher *models.VoucherTracking) error {
	return r.db.Create(voucher).Error
}

// GetByID 按ID获取推荐券
func (r *GormVoucherRepository) GetByID(id uint) (*models.VoucherTracking, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.VoucherTracking
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByCode 按券码获取推荐券
func (r *GormVoucherRepository) GetByCode(code string) (*models.VoucherTracking, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var row models.VoucherTracking
	if err := r.db.Where("voucher_code = ?", normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetLatestByCustomerForUpdate 锁定查询客户最近的推荐记录
func (r *GormVoucherRepository) GetLatestByCustomerForUpdate(partnerID uint, customerRef string) (*models.VoucherTracking, error) {
	ref := strings.TrimSpace(customerRef)
	if partnerID == 0 || ref == "" {
		return nil, nil
	}
	var row models.VoucherTracking
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("partner_id = ? AND customer_ref = ?", partnerID, ref).
		Order("created_at desc, id desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Update 保存推荐券
func (r *GormVoucherRepository) Update(voucher *models.VoucherTracking) error {
	return r.db.Save(voucher).Error
}

// UpdateCommissionMirror 同步佣金状态镜像
func (r *GormVoucherRepository) UpdateCommissionMirror(id uint, commissionStatus, invoiceStatus string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"commission_status": commissionStatus,
		"updated_at":        updatedAt,
	}
	if strings.TrimSpace(invoiceStatus) != "" {
		updates["invoice_status"] = invoiceStatus
	}
	return r.db.Model(&models.VoucherTracking{}).Where("id = ?", id).Updates(updates).Error
}

// List 查询推荐券列表
func (r *GormVoucherRepository) List(filter VoucherListFilter) ([]models.VoucherTracking, int64, error) {
	query := r.db.Model(&models.VoucherTracking{})
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if status := strings.TrimSpace(filter.ActivationStatus); status != "" {
		query = query.Where("activation_status = ?", status)
	}
	query = applyLikeSearch(query, filter.Keyword, "voucher_code", "customer_ref", "recipient_name", "recipient_phone")
	return findPage[models.VoucherTracking](query, filter.Page, filter.PageSize, "id desc")
}

// ListCustomers 按客户聚合合作伙伴的推荐记录
func (r *GormVoucherRepository) ListCustomers(filter CustomerListFilter) ([]CustomerRow, int64, error) {
	if filter.PartnerID == 0 {
		return []CustomerRow{}, 0, nil
	}
	base := r.db.Model(&models.VoucherTracking{}).Where("partner_id = ?", filter.PartnerID)
	base = applyLikeSearch(base, filter.SearchPhone, "recipient_phone")

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("customer_ref").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{}).
		Select("customer_ref, MAX(recipient_name) AS recipient_name, MAX(recipient_phone) AS recipient_phone, MIN(id) AS first_voucher_id").
		Group("customer_ref").
		Order("first_voucher_id desc").
		Order("customer_ref asc")
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []CustomerRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
