package public

import (
	"strconv"
	"strings"

	"github.com/partnerhub/internal/constants"
	handlershared "github.com/partnerhub/internal/http/handlers/shared"
	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboard 合作伙伴仪表盘
func (h *Handler) GetDashboard(c *gin.Context) {
	partnerID, ok := getPartnerID(c)
	if !ok {
		return
	}
	forceRefresh, _ := strconv.ParseBool(strings.TrimSpace(c.Query("force_refresh")))
	dashboard, err := h.DashboardService.GetPartnerDashboard(c.Request.Context(), service.DashboardQueryInput{
		PartnerID:    partnerID,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, dashboard)
}

// ListCustomers 我的客户
func (h *Handler) ListCustomers(c *gin.Context) {
	partnerID, ok := getPartnerID(c)
	if !ok {
		return
	}
	page, limit := handlershared.PaginationFromQuery(c)
	rows, total, err := h.DashboardService.ListPartnerCustomers(service.CustomerQuery{
		PartnerID:   partnerID,
		SearchPhone: strings.TrimSpace(c.Query("search_phone")),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, limit, total))
}

// GetPaymentHistory 付款历史：action=list 返回批次列表，action=detail 返回批次明细；未传 action 时按 batch_id 推断
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	partnerID, ok := getPartnerID(c)
	if !ok {
		return
	}
	action := strings.ToLower(strings.TrimSpace(c.Query("action")))
	batchID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("batch_id")), 10, 64)
	if action == constants.PaymentHistoryActionDetail && batchID == 0 {
		respondError(c, response.CodeBadRequest, "batch_id is required", nil)
		return
	}
	history, err := h.DashboardService.GetPaymentHistory(service.PaymentHistoryQuery{
		PartnerID: partnerID,
		Action:    action,
		BatchID:   uint(batchID),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// ApplyWithdrawal 提交提现申请
func (h *Handler) ApplyWithdrawal(c *gin.Context) {
	partnerID, ok := getPartnerID(c)
	if !ok {
		return
	}
	var req service.WithdrawApplyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	row, err := h.WithdrawalService.ApplyWithdrawal(c.Request.Context(), partnerID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// ListWithdrawals 我的提现申请
func (h *Handler) ListWithdrawals(c *gin.Context) {
	partnerID, ok := getPartnerID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	rows, total, err := h.WithdrawalService.ListWithdrawals(repository.WithdrawalListFilter{
		Page:      page,
		PageSize:  pageSize,
		PartnerID: partnerID,
		Status:    strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
