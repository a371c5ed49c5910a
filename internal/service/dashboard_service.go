package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	customerListDefaultLimit = 20
	customerListMaxLimit     = 100
)

// DashboardService 合作伙伴仪表盘与报表
// 说明：只读聚合，不产生任何写入；配置缺失时直接返回错误，不返回清零的数据。
type DashboardService struct {
	partnerRepo      repository.PartnerRepository
	voucherRepo      repository.VoucherRepository
	commissionRepo   repository.CommissionRepository
	adjustmentRepo   repository.AdjustmentRepository
	paymentBatchRepo repository.PaymentBatchRepository
	withdrawalRepo   repository.WithdrawalRepository
	tierService      *TierService
	lockSettings     *LockPaymentSettingService
	cacheTTL         time.Duration
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(
	partnerRepo repository.PartnerRepository,
	voucherRepo repository.VoucherRepository,
	commissionRepo repository.CommissionRepository,
	adjustmentRepo repository.AdjustmentRepository,
	paymentBatchRepo repository.PaymentBatchRepository,
	withdrawalRepo repository.WithdrawalRepository,
	tierService *TierService,
	lockSettings *LockPaymentSettingService,
	cacheTTL time.Duration,
) *DashboardService {
	return &DashboardService{
		partnerRepo:      partnerRepo,
		voucherRepo:      voucherRepo,
		commissionRepo:   commissionRepo,
		adjustmentRepo:   adjustmentRepo,
		paymentBatchRepo: paymentBatchRepo,
		withdrawalRepo:   withdrawalRepo,
		tierService:      tierService,
		lockSettings:     lockSettings,
		cacheTTL:         cacheTTL,
	}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	PartnerID    uint
	ForceRefresh bool
}

// DashboardAdjustments 统计调整汇总
type DashboardAdjustments struct {
	Count                int64        `json:"count"`
	F1Adjustment         int64        `json:"f1_adjustment"`
	RevenueAdjustment    models.Money `json:"revenue_adjustment"`
	CommissionAdjustment models.Money `json:"commission_adjustment"`
}

// DashboardStats 仪表盘佣金统计
type DashboardStats struct {
	PendingCommission   models.Money         `json:"pending_commission"`
	LockedCommission    models.Money         `json:"locked_commission"`
	PaidCommission      models.Money         `json:"paid_commission"`
	CancelledCommission models.Money         `json:"cancelled_commission"`
	TotalCommission     models.Money         `json:"total_commission"`
	QualifiedF1Count    int64                `json:"qualifiedF1Count"`
	TotalF1Revenue      models.Money         `json:"totalF1Revenue"`
	Adjustments         DashboardAdjustments `json:"adjustments"`
	Breakdown           ComponentTotals      `json:"breakdown"`
	Revenue             StatusAmounts        `json:"revenue"`
	Orders              OrderCounts          `json:"orders"`
}

// DashboardTier 仪表盘等级信息
type DashboardTier struct {
	Current             *models.TierDefinition  `json:"current"`
	Next                *models.TierDefinition  `json:"next"`
	ReferralsToNextTier int64                   `json:"referralsToNextTier"`
	RevenueToNextTier   models.Money            `json:"revenueToNextTier"`
	TierList            []models.TierDefinition `json:"tierList"`
}

// DashboardPayment 仪表盘付款信息
type DashboardPayment struct {
	LockPeriodDays         int          `json:"lock_period_days"`
	PaymentDay             int          `json:"payment_day"`
	NextPaymentDate        string       `json:"next_payment_date"`
	AvailableForWithdrawal models.Money `json:"available_for_withdrawal"`
	PendingWithdrawal      models.Money `json:"pending_withdrawal"`
}

// PartnerDashboard 合作伙伴仪表盘
type PartnerDashboard struct {
	PartnerID   uint             `json:"partner_id"`
	PartnerCode string           `json:"partner_code"`
	Stats       DashboardStats   `json:"stats"`
	Tier        DashboardTier    `json:"tier"`
	Payment     DashboardPayment `json:"payment"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// CustomerQuery 我的客户查询
type CustomerQuery struct {
	PartnerID   uint
	SearchPhone string
	Page        int
	Limit       int
}

// CustomerSummary 被推荐客户汇总
type CustomerSummary struct {
	CustomerRef string          `json:"customer_ref"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Stats       CommissionStats `json:"stats"`
}

// PaymentHistoryQuery 付款历史查询
type PaymentHistoryQuery struct {
	PartnerID uint
	Action    string
	BatchID   uint
}

// PartnerBatchSummary 合作伙伴视角的付款批次
type PartnerBatchSummary struct {
	BatchID       uint         `json:"batch_id"`
	BatchCode     string       `json:"batch_code"`
	PaymentDate   time.Time    `json:"payment_date"`
	Status        string       `json:"status"`
	RecordCount   int64        `json:"record_count"`
	TotalAmount   models.Money `json:"total_amount"`
	InvoiceAmount models.Money `json:"invoice_amount"`
}

// PaymentBatchDetail 付款批次明细
type PaymentBatchDetail struct {
	Batch     PartnerBatchSummary       `json:"batch"`
	Breakdown ComponentTotals           `json:"breakdown"`
	Records   []models.CommissionRecord `json:"records"`
}

// PaymentHistory 付款历史结果
type PaymentHistory struct {
	Action  string                `json:"action"`
	Batches []PartnerBatchSummary `json:"batches,omitempty"`
	Detail  *PaymentBatchDetail   `json:"detail,omitempty"`
}

// GetPartnerDashboard 合作伙伴仪表盘，优先读缓存
func (s *DashboardService) GetPartnerDashboard(ctx context.Context, input DashboardQueryInput) (*PartnerDashboard, error) {
	if !input.ForceRefresh {
		var cached PartnerDashboard
		hit, cacheErr := cache.GetPartnerDashboard(ctx, input.PartnerID, &cached)
		if cacheErr != nil {
			logger.Warnw("partner_dashboard_cache_get_failed", "partner_id", input.PartnerID, "error", cacheErr)
		} else if hit {
			return &cached, nil
		}
	}

	dashboard, err := s.buildDashboard(ctx, input.PartnerID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := cache.SetPartnerDashboard(ctx, input.PartnerID, dashboard, s.cacheTTL); err != nil {
		logger.Warnw("partner_dashboard_cache_set_failed", "partner_id", input.PartnerID, "error", err)
	}
	return dashboard, nil
}

func (s *DashboardService) buildDashboard(ctx context.Context, partnerID uint, now time.Time) (*PartnerDashboard, error) {
	evaluation, err := s.tierService.EvaluatePartnerTier(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.GetByID(partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	setting, err := s.lockSettings.Get()
	if err != nil {
		return nil, err
	}

	records, err := s.commissionRepo.ListByPartner(partnerID, nil)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	adjustments, err := s.adjustmentRepo.SumByPartner(partnerID, nil)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	available, pending, err := s.availableForWithdrawal(partnerID)
	if err != nil {
		return nil, err
	}

	folded := FoldCommissionStats(records)
	q := evaluation.Qualification
	return &PartnerDashboard{
		PartnerID:   partner.ID,
		PartnerCode: partner.PartnerCode,
		Stats: DashboardStats{
			PendingCommission:   folded.Commission.Pending,
			LockedCommission:    folded.Commission.Locked,
			PaidCommission:      folded.Commission.Paid,
			CancelledCommission: folded.Commission.Cancelled,
			TotalCommission:     folded.Commission.Total,
			QualifiedF1Count:    q.AdjustedReferralCount,
			TotalF1Revenue:      models.NewMoneyFromDecimal(q.AdjustedRevenue),
			Adjustments: DashboardAdjustments{
				Count:                adjustments.Count,
				F1Adjustment:         adjustments.F1,
				RevenueAdjustment:    models.NewMoneyFromDecimal(adjustments.Revenue),
				CommissionAdjustment: models.NewMoneyFromDecimal(adjustments.Commission),
			},
			Breakdown: folded.Breakdown,
			Revenue:   folded.Revenue,
			Orders:    folded.Orders,
		},
		Tier: DashboardTier{
			Current:             evaluation.Current,
			Next:                evaluation.Next,
			ReferralsToNextTier: evaluation.ReferralsToNextTier,
			RevenueToNextTier:   models.NewMoneyFromDecimal(evaluation.RevenueToNextTier),
			TierList:            []models.TierDefinition(evaluation.Ladder),
		},
		Payment: DashboardPayment{
			LockPeriodDays:         setting.LockPeriodDays,
			PaymentDay:             setting.PaymentDay,
			NextPaymentDate:        NextPaymentDate(setting, now).Format("2006-01-02"),
			AvailableForWithdrawal: models.NewMoneyFromDecimal(available),
			PendingWithdrawal:      models.NewMoneyFromDecimal(pending),
		},
		GeneratedAt: now,
	}, nil
}

// availableForWithdrawal 已锁定未入批次的佣金减去待审核提现
func (s *DashboardService) availableForWithdrawal(partnerID uint) (decimal.Decimal, decimal.Decimal, error) {
	return availableForWithdrawal(s.commissionRepo, s.withdrawalRepo, partnerID)
}

func availableForWithdrawal(commissionRepo repository.CommissionRepository, withdrawalRepo repository.WithdrawalRepository, partnerID uint) (decimal.Decimal, decimal.Decimal, error) {
	locked, err := commissionRepo.SumByPartner(partnerID, []string{constants.CommissionStatusLocked}, true)
	if err != nil {
		return decimal.Zero, decimal.Zero, wrapStoreError(err)
	}
	pending, err := withdrawalRepo.SumPendingByPartner(partnerID)
	if err != nil {
		return decimal.Zero, decimal.Zero, wrapStoreError(err)
	}
	available := locked.Sub(pending)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return available, pending, nil
}

// ListPartnerCustomers 合作伙伴名下客户及其订单/营收/佣金汇总
func (s *DashboardService) ListPartnerCustomers(query CustomerQuery) ([]CustomerSummary, int64, error) {
	partner, err := s.partnerRepo.GetByID(query.PartnerID)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	if partner == nil {
		return nil, 0, ErrPartnerNotFound
	}
	limit := query.Limit
	if limit <= 0 {
		limit = customerListDefaultLimit
	}
	if limit > customerListMaxLimit {
		limit = customerListMaxLimit
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	rows, total, err := s.voucherRepo.ListCustomers(repository.CustomerListFilter{
		Page:        page,
		PageSize:    limit,
		PartnerID:   query.PartnerID,
		SearchPhone: strings.TrimSpace(query.SearchPhone),
	})
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	refs := make([]string, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, row.CustomerRef)
	}
	records, err := s.commissionRepo.ListByPartnerCustomers(query.PartnerID, refs)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	byCustomer := FoldCommissionStatsByCustomer(records)

	items := make([]CustomerSummary, 0, len(rows))
	for _, row := range rows {
		stats, ok := byCustomer[row.CustomerRef]
		if !ok {
			stats = FoldCommissionStats(nil)
		}
		items = append(items, CustomerSummary{
			CustomerRef: row.CustomerRef,
			Name:        row.RecipientName,
			Phone:       row.RecipientPhone,
			Stats:       stats,
		})
	}
	return items, total, nil
}

// GetPaymentHistory 付款历史：list 返回批次列表，detail 返回单个批次明细
func (s *DashboardService) GetPaymentHistory(query PaymentHistoryQuery) (*PaymentHistory, error) {
	action := strings.ToLower(strings.TrimSpace(query.Action))
	if action == "" {
		action = constants.PaymentHistoryActionList
		if query.BatchID != 0 {
			action = constants.PaymentHistoryActionDetail
		}
	}
	switch action {
	case constants.PaymentHistoryActionList:
		batches, err := s.listPartnerBatches(query.PartnerID)
		if err != nil {
			return nil, err
		}
		return &PaymentHistory{Action: action, Batches: batches}, nil
	case constants.PaymentHistoryActionDetail:
		detail, err := s.batchDetail(query.PartnerID, query.BatchID)
		if err != nil {
			return nil, err
		}
		return &PaymentHistory{Action: action, Detail: detail}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
}

func (s *DashboardService) listPartnerBatches(partnerID uint) ([]PartnerBatchSummary, error) {
	rows, err := s.commissionRepo.ListPartnerBatches(partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PaymentBatchID)
	}
	batches, err := s.paymentBatchRepo.GetByIDs(ids)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	items := make([]PartnerBatchSummary, 0, len(rows))
	for _, row := range rows {
		summary := PartnerBatchSummary{
			BatchID:       row.PaymentBatchID,
			RecordCount:   row.RecordCount,
			TotalAmount:   models.NewMoneyFromDecimal(row.TotalAmount),
			InvoiceAmount: models.NewMoneyFromDecimal(row.InvoiceAmount),
		}
		if batch, ok := batches[row.PaymentBatchID]; ok {
			summary.BatchCode = batch.BatchCode
			summary.PaymentDate = batch.PaymentDate
			summary.Status = batch.Status
		}
		items = append(items, summary)
	}
	return items, nil
}

func (s *DashboardService) batchDetail(partnerID, batchID uint) (*PaymentBatchDetail, error) {
	if batchID == 0 {
		return nil, fmt.Errorf("%w: batch_id is required", ErrValidation)
	}
	batch, err := s.paymentBatchRepo.GetByID(batchID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if batch == nil {
		return nil, ErrPaymentBatchNotFound
	}
	records, err := s.commissionRepo.ListByBatch(batchID, partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	// 合作伙伴只能查看包含自己佣金的批次
	if len(records) == 0 {
		return nil, ErrPaymentBatchNotFound
	}
	total, invoice := decimal.Zero, decimal.Zero
	for _, record := range records {
		total = total.Add(record.TotalCommission.Decimal)
		invoice = invoice.Add(record.InvoiceAmount.Decimal)
	}
	return &PaymentBatchDetail{
		Batch: PartnerBatchSummary{
			BatchID:       batch.ID,
			BatchCode:     batch.BatchCode,
			PaymentDate:   batch.PaymentDate,
			Status:        batch.Status,
			RecordCount:   int64(len(records)),
			TotalAmount:   models.NewMoneyFromDecimal(total),
			InvoiceAmount: models.NewMoneyFromDecimal(invoice),
		},
		Breakdown: FoldCommissionStats(records).Breakdown,
		Records:   records,
	}, nil
}
