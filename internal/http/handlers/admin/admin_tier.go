package admin

import (
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTiers 等级阶梯
func (h *Handler) ListTiers(c *gin.Context) {
	ladder, err := h.TierService.ListTiers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, ladder)
}

// UpsertTier 新增或更新等级定义，保存后阶梯必须仍然有效
func (h *Handler) UpsertTier(c *gin.Context) {
	var req service.TierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if code := strings.TrimSpace(c.Param("code")); code != "" {
		req.TierCode = code
	}
	tier, err := h.TierService.UpsertTier(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_tier_saved", "tier_code", tier.TierCode, "admin", getAdminSubject(c))
	response.Success(c, tier)
}

// DeleteTier 删除等级定义
func (h *Handler) DeleteTier(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "tier code is required", nil)
		return
	}
	if err := h.TierService.DeleteTier(c.Request.Context(), code); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_tier_deleted", "tier_code", code, "admin", getAdminSubject(c))
	response.Success(c, gin.H{"deleted": true})
}

// GetLockPaymentSetting 锁定期与付款日设置
func (h *Handler) GetLockPaymentSetting(c *gin.Context) {
	setting, err := h.LockSettingService.Get()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}

// UpdateLockPaymentSetting 更新锁定期与付款日
func (h *Handler) UpdateLockPaymentSetting(c *gin.Context) {
	var req service.LockPaymentSettingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	setting, err := h.LockSettingService.Update(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}
