package cache

import (
	"context"
	"fmt"
	"time"
)

const tierLadderKey = "tiers:ladder"

// PartnerDashboardKey 合作伙伴仪表盘缓存 key
func PartnerDashboardKey(partnerID uint) string {
	return fmt.Sprintf("partner:%d:dashboard", partnerID)
}

// TierLadderKey 等级阶梯缓存 key
func TierLadderKey() string {
	return tierLadderKey
}

// InvalidatePartner 清理合作伙伴相关缓存
func InvalidatePartner(ctx context.Context, partnerIDs ...uint) error {
	if !Enabled() || len(partnerIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(partnerIDs)*2)
	seen := make(map[uint]struct{}, len(partnerIDs))
	for _, id := range partnerIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, PartnerDashboardKey(id), partnerAuthStateKey(id))
	}
	return Del(ctx, keys...)
}

// ttlOrDefault 未配置时使用的缓存时长
func ttlOrDefault(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return fallback
}

// SetPartnerDashboard 写入仪表盘缓存
func SetPartnerDashboard(ctx context.Context, partnerID uint, value interface{}, ttl time.Duration) error {
	return SetJSON(ctx, PartnerDashboardKey(partnerID), value, ttlOrDefault(ttl, 2*time.Minute))
}

// GetPartnerDashboard 读取仪表盘缓存
func GetPartnerDashboard(ctx context.Context, partnerID uint, dest interface{}) (bool, error) {
	return GetJSON(ctx, PartnerDashboardKey(partnerID), dest)
}

// SetTierLadder 写入等级阶梯缓存
func SetTierLadder(ctx context.Context, value interface{}, ttl time.Duration) error {
	return SetJSON(ctx, TierLadderKey(), value, ttlOrDefault(ttl, 10*time.Minute))
}

// GetTierLadder 读取等级阶梯缓存
func GetTierLadder(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, TierLadderKey(), dest)
}

// InvalidateTierLadder 清理等级阶梯缓存
func InvalidateTierLadder(ctx context.Context) error {
	return Del(ctx, TierLadderKey())
}
