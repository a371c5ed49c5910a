package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/queue"
	"github.com/partnerhub/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultTierRecalcBatchSize = 200

// TierService 等级资格引擎
type TierService struct {
	tierRepo       repository.TierRepository
	partnerRepo    repository.PartnerRepository
	commissionRepo repository.CommissionRepository
	adjustmentRepo repository.AdjustmentRepository
	queueClient    *queue.Client
	metrics        *metrics.Registry
	ladderTTL      time.Duration
}

// NewTierService 创建等级服务
func NewTierService(
	tierRepo repository.TierRepository,
	partnerRepo repository.PartnerRepository,
	commissionRepo repository.CommissionRepository,
	adjustmentRepo repository.AdjustmentRepository,
	queueClient *queue.Client,
	registry *metrics.Registry,
	ladderTTL time.Duration,
) *TierService {
	return &TierService{
		tierRepo:       tierRepo,
		partnerRepo:    partnerRepo,
		commissionRepo: commissionRepo,
		adjustmentRepo: adjustmentRepo,
		queueClient:    queueClient,
		metrics:        registry,
		ladderTTL:      ladderTTL,
	}
}

// Qualification 合作伙伴等级资格统计
type Qualification struct {
	RawReferralCount      int64           `json:"raw_referral_count"`
	RawRevenue            decimal.Decimal `json:"raw_revenue"`
	F1Delta               int64           `json:"f1_delta"`
	RevenueDelta          decimal.Decimal `json:"revenue_delta"`
	CommissionDelta       decimal.Decimal `json:"commission_delta"`
	AdjustedReferralCount int64           `json:"adjusted_referral_count"`
	AdjustedRevenue       decimal.Decimal `json:"adjusted_revenue"`
}

// TierEvaluation 等级评估结果（只读）
type TierEvaluation struct {
	PartnerID           uint                   `json:"partner_id"`
	CachedTier          string                 `json:"cached_tier"`
	Current             *models.TierDefinition `json:"current"`
	Next                *models.TierDefinition `json:"next"`
	Qualification       Qualification          `json:"qualification"`
	ReferralsToNextTier int64                  `json:"referrals_to_next_tier"`
	RevenueToNextTier   decimal.Decimal        `json:"revenue_to_next_tier"`
	Ladder              TierLadder             `json:"-"`
	index               int
}

// CurrentCode 当前等级编码，未达到任何等级时为空
func (e *TierEvaluation) CurrentCode() string {
	if e == nil || e.Current == nil {
		return ""
	}
	return e.Current.TierCode
}

// TierRecalcResult 单个合作伙伴等级重算结果
type TierRecalcResult struct {
	PartnerID    uint   `json:"partner_id"`
	PreviousTier string `json:"previous_tier"`
	CurrentTier  string `json:"current_tier"`
	Changed      bool   `json:"changed"`
}

// TierRecalcSummary 全量重算汇总
type TierRecalcSummary struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// TierInput 等级定义保存输入
type TierInput struct {
	TierCode       string          `json:"tier_code"`
	TierName       string          `json:"tier_name"`
	TierLevel      int             `json:"tier_level"`
	MinReferrals   int             `json:"min_referrals"`
	MinRevenue     decimal.Decimal `json:"min_revenue"`
	FirstOrderRate decimal.Decimal `json:"first_order_rate"`
	LifetimeRate   decimal.Decimal `json:"lifetime_rate"`
	TierBonusRate  decimal.Decimal `json:"tier_bonus_rate"`
	Benefits       models.JSON     `json:"benefits"`
}

// LoadLadder 读取并校验等级阶梯，优先读缓存
func (s *TierService) LoadLadder(ctx context.Context) (TierLadder, error) {
	var cached TierLadder
	if hit, err := cache.GetTierLadder(ctx, &cached); err == nil && hit && len(cached) > 0 {
		if err := cached.Validate(); err == nil {
			return cached, nil
		}
	}

	rows, err := s.tierRepo.ListOrdered()
	if err != nil {
		return nil, wrapStoreError(err)
	}
	ladder := TierLadder(rows)
	if err := ladder.Validate(); err != nil {
		logger.Errorw("tier_ladder_invalid", "error", err, "tiers", len(ladder))
		return nil, err
	}
	if err := cache.SetTierLadder(ctx, ladder, s.ladderTTL); err != nil {
		logger.Warnw("tier_ladder_cache_set_failed", "error", err)
	}
	return ladder, nil
}

// ListTiers 返回等级阶梯
func (s *TierService) ListTiers(ctx context.Context) (TierLadder, error) {
	return s.LoadLadder(ctx)
}

// UpsertTier 新增或更新等级定义，保存前校验整条阶梯
func (s *TierService) UpsertTier(ctx context.Context, input TierInput) (*models.TierDefinition, error) {
	tier, err := normalizeTierInput(input)
	if err != nil {
		return nil, err
	}

	err = s.tierRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.tierRepo.WithTx(tx)
		existing, err := repo.GetByCode(tier.TierCode)
		if err != nil {
			return wrapStoreError(err)
		}
		if existing != nil {
			tier.ID = existing.ID
			tier.CreatedAt = existing.CreatedAt
		}

		rows, err := repo.ListOrdered()
		if err != nil {
			return wrapStoreError(err)
		}
		candidate := make(TierLadder, 0, len(rows)+1)
		for _, row := range rows {
			if row.TierCode != tier.TierCode {
				candidate = append(candidate, row)
			}
		}
		candidate = append(candidate, *tier)
		sort.SliceStable(candidate, func(i, j int) bool {
			return candidate[i].TierLevel < candidate[j].TierLevel
		})
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrTierInvalid, err)
		}
		return wrapStoreError(repo.Save(tier))
	})
	if err != nil {
		return nil, err
	}
	s.invalidateLadder(ctx)
	logger.Infow("tier_definition_saved",
		"tier_code", tier.TierCode,
		"tier_level", tier.TierLevel,
		"min_referrals", tier.MinReferrals,
		"min_revenue", tier.MinRevenue.String(),
	)
	return tier, nil
}

// DeleteTier 删除等级定义，剩余阶梯须非空且通过校验
func (s *TierService) DeleteTier(ctx context.Context, code string) error {
	err := s.tierRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.tierRepo.WithTx(tx)
		existing, err := repo.GetByCode(code)
		if err != nil {
			return wrapStoreError(err)
		}
		if existing == nil {
			return ErrTierNotFound
		}
		rows, err := repo.ListOrdered()
		if err != nil {
			return wrapStoreError(err)
		}
		remaining := make(TierLadder, 0, len(rows))
		for _, row := range rows {
			if row.ID != existing.ID {
				remaining = append(remaining, row)
			}
		}
		if len(remaining) == 0 {
			return fmt.Errorf("%w: cannot remove the last tier", ErrTierInvalid)
		}
		if err := remaining.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrTierInvalid, err)
		}
		return wrapStoreError(repo.Delete(existing.ID))
	})
	if err != nil {
		return err
	}
	s.invalidateLadder(ctx)
	logger.Infow("tier_definition_deleted", "tier_code", strings.ToUpper(strings.TrimSpace(code)))
	return nil
}

// EvaluatePartnerTier 只读评估合作伙伴当前应处等级
func (s *TierService) EvaluatePartnerTier(ctx context.Context, partnerID uint) (*TierEvaluation, error) {
	partner, err := s.partnerRepo.GetByID(partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	ladder, err := s.LoadLadder(ctx)
	if err != nil {
		return nil, err
	}
	evaluation, err := s.evaluate(ladder, partner.ID)
	if err != nil {
		return nil, err
	}
	evaluation.CachedTier = partner.CurrentTier
	return evaluation, nil
}

// RecalculatePartnerTier 重算合作伙伴等级，仅在等级变化时写入
func (s *TierService) RecalculatePartnerTier(ctx context.Context, partnerID uint) (*TierRecalcResult, error) {
	evaluation, err := s.EvaluatePartnerTier(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	result := &TierRecalcResult{
		PartnerID:    partnerID,
		PreviousTier: evaluation.CachedTier,
		CurrentTier:  evaluation.CurrentCode(),
	}
	if result.PreviousTier == result.CurrentTier {
		return result, nil
	}

	updated, err := s.partnerRepo.UpdateCurrentTier(partnerID, result.PreviousTier, result.CurrentTier, time.Now())
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if !updated {
		// 并发重算已经写入，保留对方的结果
		logger.Debugw("partner_tier_update_skipped", "partner_id", partnerID, "expected_tier", result.PreviousTier)
		return result, nil
	}
	result.Changed = true
	s.metrics.IncTierChange(result.PreviousTier, result.CurrentTier)
	if err := cache.InvalidatePartner(ctx, partnerID); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partner_id", partnerID, "error", err)
	}
	logger.Infow("partner_tier_changed",
		"partner_id", partnerID,
		"from", result.PreviousTier,
		"to", result.CurrentTier,
		"adjusted_referrals", evaluation.Qualification.AdjustedReferralCount,
		"adjusted_revenue", evaluation.Qualification.AdjustedRevenue.StringFixed(2),
	)
	return result, nil
}

// RecalculateAllTiers 按主键游标分批重算全部合作伙伴等级
func (s *TierService) RecalculateAllTiers(ctx context.Context, batchSize int) (TierRecalcSummary, error) {
	summary := TierRecalcSummary{}
	if batchSize <= 0 {
		batchSize = defaultTierRecalcBatchSize
	}
	// 先校验一次阶梯，配置错误直接中止
	if _, err := s.LoadLadder(ctx); err != nil {
		return summary, err
	}

	var cursor uint
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ids, err := s.partnerRepo.ListIDsAfter(cursor, batchSize)
		if err != nil {
			return summary, wrapStoreError(err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			summary.Scanned++
			result, err := s.RecalculatePartnerTier(ctx, id)
			if err != nil {
				if isConfigurationError(err) {
					return summary, err
				}
				summary.Failed++
				logger.Warnw("partner_tier_recalc_failed", "partner_id", id, "error", err)
				continue
			}
			if result.Changed {
				summary.Changed++
			}
		}
		cursor = ids[len(ids)-1]
		if len(ids) < batchSize {
			break
		}
	}
	return summary, nil
}

// ScheduleRecalc 安排等级重算：队列可用时异步，否则同步执行
func (s *TierService) ScheduleRecalc(ctx context.Context, reason string, partnerIDs ...uint) {
	seen := make(map[uint]struct{}, len(partnerIDs))
	for _, id := range partnerIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if s.queueClient.Enabled() {
			err := s.queueClient.EnqueueTierRecalc(queue.TierRecalcPayload{PartnerID: id, Reason: reason})
			if err == nil {
				continue
			}
			logger.Warnw("partner_tier_recalc_enqueue_failed", "partner_id", id, "reason", reason, "error", err)
		}
		if _, err := s.RecalculatePartnerTier(ctx, id); err != nil {
			logger.Warnw("partner_tier_recalc_failed", "partner_id", id, "reason", reason, "error", err)
		}
	}
}

// SnapshotTierCode 推荐建立时的等级快照：未达到任何等级时取基础等级
func (s *TierService) SnapshotTierCode(ctx context.Context, partnerID uint) (string, error) {
	ladder, err := s.LoadLadder(ctx)
	if err != nil {
		return "", err
	}
	evaluation, err := s.evaluate(ladder, partnerID)
	if err != nil {
		return "", err
	}
	return ladder.Code(ladder.rateTierIndex(evaluation.index)), nil
}

// Qualification 统计合作伙伴的资格数据
func (s *TierService) Qualification(partnerID uint) (Qualification, error) {
	q := Qualification{
		RawRevenue:      decimal.Zero,
		RevenueDelta:    decimal.Zero,
		CommissionDelta: decimal.Zero,
		AdjustedRevenue: decimal.Zero,
	}
	agg, err := s.commissionRepo.GetQualificationAggregate(partnerID)
	if err != nil {
		return q, wrapStoreError(err)
	}
	// 付款前取消的记录已是 cancelled，付款后取消的记录不计客户数但计营收；只叠加付款后取消的调整
	adj, err := s.adjustmentRepo.SumByPartner(partnerID, []string{constants.AdjustmentTypeCancelledAfterPaid})
	if err != nil {
		return q, wrapStoreError(err)
	}
	q.RawReferralCount = agg.ReferralCount
	q.RawRevenue = agg.Revenue
	q.F1Delta = adj.F1
	q.RevenueDelta = adj.Revenue
	q.CommissionDelta = adj.Commission
	q.AdjustedReferralCount = q.RawReferralCount + q.F1Delta
	if q.AdjustedReferralCount < 0 {
		q.AdjustedReferralCount = 0
	}
	q.AdjustedRevenue = q.RawRevenue.Add(q.RevenueDelta)
	if q.AdjustedRevenue.IsNegative() {
		q.AdjustedRevenue = decimal.Zero
	}
	return q, nil
}

func (s *TierService) evaluate(ladder TierLadder, partnerID uint) (*TierEvaluation, error) {
	q, err := s.Qualification(partnerID)
	if err != nil {
		return nil, err
	}
	index := ladder.Evaluate(q.AdjustedReferralCount, q.AdjustedRevenue)
	evaluation := &TierEvaluation{
		PartnerID:         partnerID,
		Current:           ladder.At(index),
		Next:              ladder.At(index + 1),
		Qualification:     q,
		RevenueToNextTier: decimal.Zero,
		Ladder:            ladder,
		index:             index,
	}
	if evaluation.Next != nil {
		evaluation.ReferralsToNextTier = int64(evaluation.Next.MinReferrals) - q.AdjustedReferralCount
		if evaluation.ReferralsToNextTier < 0 {
			evaluation.ReferralsToNextTier = 0
		}
		evaluation.RevenueToNextTier = evaluation.Next.MinRevenue.Decimal.Sub(q.AdjustedRevenue)
		if evaluation.RevenueToNextTier.IsNegative() {
			evaluation.RevenueToNextTier = decimal.Zero
		}
	}
	return evaluation, nil
}

func (s *TierService) invalidateLadder(ctx context.Context) {
	if err := cache.InvalidateTierLadder(ctx); err != nil {
		logger.Warnw("tier_ladder_cache_invalidate_failed", "error", err)
	}
}

func normalizeTierInput(input TierInput) (*models.TierDefinition, error) {
	code := strings.ToUpper(strings.TrimSpace(input.TierCode))
	if code == "" || len(code) > 32 {
		return nil, fmt.Errorf("%w: tier_code is required (max 32 chars)", ErrTierInvalid)
	}
	name := strings.TrimSpace(input.TierName)
	if name == "" {
		name = code
	}
	if input.TierLevel <= 0 {
		return nil, fmt.Errorf("%w: tier_level must be positive", ErrTierInvalid)
	}
	if input.MinReferrals < 0 || input.MinRevenue.IsNegative() {
		return nil, fmt.Errorf("%w: thresholds must not be negative", ErrTierInvalid)
	}
	for field, rate := range map[string]decimal.Decimal{
		"first_order_rate": input.FirstOrderRate,
		"lifetime_rate":    input.LifetimeRate,
		"tier_bonus_rate":  input.TierBonusRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: %s must be within 0-1", ErrTierInvalid, field)
		}
	}
	benefits := input.Benefits
	if benefits == nil {
		benefits = models.JSON{}
	}
	return &models.TierDefinition{
		TierCode:       code,
		TierName:       name,
		TierLevel:      input.TierLevel,
		MinReferrals:   input.MinReferrals,
		MinRevenue:     models.NewMoneyFromDecimal(input.MinRevenue),
		FirstOrderRate: models.NewRateFromDecimal(input.FirstOrderRate),
		LifetimeRate:   models.NewRateFromDecimal(input.LifetimeRate),
		TierBonusRate:  models.NewRateFromDecimal(input.TierBonusRate),
		Benefits:       benefits,
	}, nil
}
