package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
)

const authStateTTL = 10 * time.Minute

// PartnerAuthState 合作伙伴令牌校验时使用的状态快照
type PartnerAuthState struct {
	PartnerID   uint   `json:"partner_id"`
	PartnerCode string `json:"partner_code"`
	IsActive    bool   `json:"is_active"`
	IsApproved  bool   `json:"is_approved"`
	CachedAt    int64  `json:"cached_at"`
}

// Eligible 启用且已审核
func (s *PartnerAuthState) Eligible() bool {
	return s != nil && s.IsActive && s.IsApproved
}

// PartnerLoader 缓存未命中时的回源函数
type PartnerLoader func(partnerID uint) (*models.Partner, error)

func partnerAuthStateKey(partnerID uint) string {
	return fmt.Sprintf("auth:partner:%d", partnerID)
}

// BuildPartnerAuthState 从合作伙伴记录生成快照
func BuildPartnerAuthState(partner *models.Partner) *PartnerAuthState {
	if partner == nil {
		return nil
	}
	return &PartnerAuthState{
		PartnerID:   partner.ID,
		PartnerCode: partner.PartnerCode,
		IsActive:    partner.IsActive,
		IsApproved:  partner.IsApproved,
		CachedAt:    time.Now().Unix(),
	}
}

// GetPartnerAuthState 读取快照，Redis 未启用时总是未命中
func GetPartnerAuthState(ctx context.Context, partnerID uint) (*PartnerAuthState, bool, error) {
	if partnerID == 0 {
		return nil, false, nil
	}
	state := &PartnerAuthState{}
	hit, err := GetJSON(ctx, partnerAuthStateKey(partnerID), state)
	if err != nil || !hit {
		return nil, false, err
	}
	return state, true, nil
}

// SetPartnerAuthState 写入快照
func SetPartnerAuthState(ctx context.Context, state *PartnerAuthState) error {
	if state == nil || state.PartnerID == 0 {
		return nil
	}
	return SetJSON(ctx, partnerAuthStateKey(state.PartnerID), state, authStateTTL)
}

// LoadPartnerAuthState 先读缓存，未命中时回源并回写；记录不存在时返回 nil, nil
func LoadPartnerAuthState(ctx context.Context, partnerID uint, load PartnerLoader) (*PartnerAuthState, error) {
	if cached, hit, err := GetPartnerAuthState(ctx, partnerID); err == nil && hit {
		return cached, nil
	} else if err != nil {
		logger.Debugw("partner_auth_state_cache_read_failed", "partner_id", partnerID, "error", err)
	}
	partner, err := load(partnerID)
	if err != nil || partner == nil {
		return nil, err
	}
	state := BuildPartnerAuthState(partner)
	if err := SetPartnerAuthState(ctx, state); err != nil {
		logger.Debugw("partner_auth_state_cache_write_failed", "partner_id", partnerID, "error", err)
	}
	return state, nil
}
