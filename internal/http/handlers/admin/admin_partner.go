package admin

import (
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// PartnerStatusRequest 合作伙伴启停请求
type PartnerStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListPartners 合作伙伴列表
func (h *Handler) ListPartners(c *gin.Context) {
	page, pageSize := paginationFromQuery(c)
	rows, total, err := h.PartnerService.ListPartners(repository.PartnerListFilter{
		Page:       page,
		PageSize:   pageSize,
		Keyword:    strings.TrimSpace(c.Query("keyword")),
		Tier:       strings.TrimSpace(c.Query("tier")),
		IsActive:   queryBoolPtr(c, "is_active"),
		IsApproved: queryBoolPtr(c, "is_approved"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// CreatePartner 登记合作伙伴，默认待审核
func (h *Handler) CreatePartner(c *gin.Context) {
	var req service.RegisterPartnerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	partner, err := h.PartnerService.RegisterPartner(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// GetPartner 合作伙伴详情
func (h *Handler) GetPartner(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	partner, err := h.PartnerService.GetPartner(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// ApprovePartner 审核通过
func (h *Handler) ApprovePartner(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	partner, err := h.PartnerService.ApprovePartner(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_partner_approved", "partner_id", id, "admin", getAdminSubject(c))
	response.Success(c, partner)
}

// UpdatePartnerStatus 启用/停用合作伙伴
func (h *Handler) UpdatePartnerStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req PartnerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	partner, err := h.PartnerService.SetPartnerActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// GetPartnerTier 实时评估合作伙伴等级
func (h *Handler) GetPartnerTier(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	evaluation, err := h.TierService.EvaluatePartnerTier(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, evaluation)
}

// RecalculatePartnerTier 重算并写回合作伙伴等级
func (h *Handler) RecalculatePartnerTier(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	res, err := h.TierService.RecalculatePartnerTier(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, res)
}

// IssuePartnerToken 为合作伙伴签发访问令牌，供外部登录系统或运维调试使用
func (h *Handler) IssuePartnerToken(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	partner, err := h.PartnerService.GetPartner(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	token, expiresAt, err := h.TokenService.IssuePartnerToken(partner.ID, partner.PartnerCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_partner_token_issued", "partner_id", partner.ID, "admin", getAdminSubject(c))
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// IssueVoucher 为合作伙伴发放推荐券
func (h *Handler) IssueVoucher(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req service.IssueVoucherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	voucher, err := h.PartnerService.IssueVoucher(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, voucher)
}

// ListVouchers 推荐券列表
func (h *Handler) ListVouchers(c *gin.Context) {
	page, pageSize := paginationFromQuery(c)
	rows, total, err := h.PartnerService.ListVouchers(repository.VoucherListFilter{
		Page:             page,
		PageSize:         pageSize,
		PartnerID:        queryUint(c, "partner_id"),
		ActivationStatus: strings.TrimSpace(c.Query("activation_status")),
		Keyword:          strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ActivateVoucher 标记推荐券已激活
func (h *Handler) ActivateVoucher(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "voucher code is required", nil)
		return
	}
	voucher, err := h.PartnerService.ActivateVoucher(code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, voucher)
}
