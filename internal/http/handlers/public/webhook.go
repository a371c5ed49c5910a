package public

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// 签名请求头
const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	signaturePrefix        = "sha256="
	maxWebhookBodyBytes    = 1 << 20
)

const (
	webhookKindOrder  = "order"
	webhookKindCancel = "invoice_cancelled"
)

// OrderWebhook 订单/发票事件回调。
// 回调使用真实 HTTP 状态码：4xx 表示事件本身有问题不应重试，5xx 由上游重试。
func (h *Handler) OrderWebhook(c *gin.Context) {
	body, ok := h.readSignedBody(c, webhookKindOrder)
	if !ok {
		return
	}
	log := requestLog(c)
	var event service.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warnw("order_webhook_payload_invalid", "error", err)
		h.Metrics.IncWebhookEvent(webhookKindOrder, metrics.WebhookResultRejected)
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeBadRequest, "invalid payload")
		return
	}

	res, err := h.CommissionService.IngestOrder(c.Request.Context(), event, metrics.RejectSourceWebhook)
	if err != nil {
		log.Warnw("order_webhook_handle_failed", "invoice_code", event.InvoiceCode, "error", err)
		h.respondWebhookError(c, webhookKindOrder, err)
		return
	}

	result := metrics.WebhookResultAccepted
	if res.Action == service.IngestActionDuplicate || res.Action == service.IngestActionIgnored {
		result = metrics.WebhookResultIgnored
	}
	h.Metrics.IncWebhookEvent(webhookKindOrder, result)
	log.Infow("order_webhook_processed",
		"invoice_code", event.InvoiceCode,
		"action", res.Action,
	)
	response.Success(c, res)
}

// InvoiceCancelledWebhook 发票取消回调，同一发票重复取消不会重复生成调整记录。
func (h *Handler) InvoiceCancelledWebhook(c *gin.Context) {
	body, ok := h.readSignedBody(c, webhookKindCancel)
	if !ok {
		return
	}
	log := requestLog(c)
	var event service.CancelEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warnw("cancel_webhook_payload_invalid", "error", err)
		h.Metrics.IncWebhookEvent(webhookKindCancel, metrics.WebhookResultRejected)
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeBadRequest, "invalid payload")
		return
	}

	res, err := h.CommissionService.CancelInvoice(c.Request.Context(), event, metrics.RejectSourceWebhook)
	if err != nil {
		log.Warnw("cancel_webhook_handle_failed", "invoice_code", event.InvoiceCode, "error", err)
		h.respondWebhookError(c, webhookKindCancel, err)
		return
	}

	result := metrics.WebhookResultAccepted
	if res.Action == service.CancelActionNoop {
		result = metrics.WebhookResultIgnored
	}
	h.Metrics.IncWebhookEvent(webhookKindCancel, result)
	log.Infow("cancel_webhook_processed",
		"invoice_code", event.InvoiceCode,
		"action", res.Action,
	)
	response.Success(c, res)
}

// readSignedBody 读取请求体并校验 HMAC-SHA256 签名
func (h *Handler) readSignedBody(c *gin.Context, kind string) ([]byte, bool) {
	log := requestLog(c)
	secret := ""
	if h.Config != nil {
		secret = strings.TrimSpace(h.Config.Webhook.Secret)
	}
	if secret == "" {
		log.Errorw("webhook_secret_not_configured", "kind", kind)
		h.Metrics.IncWebhookEvent(kind, metrics.WebhookResultFailed)
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, response.CodeInternal, "webhook not configured")
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil || len(body) > maxWebhookBodyBytes {
		log.Warnw("webhook_body_read_failed", "kind", kind, "size", len(body), "error", err)
		h.Metrics.IncWebhookEvent(kind, metrics.WebhookResultRejected)
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeBadRequest, "invalid payload")
		return nil, false
	}

	signature := c.GetHeader(HeaderWebhookSignature)
	if !VerifySignature(secret, body, signature) {
		log.Warnw("webhook_signature_invalid",
			"kind", kind,
			"client_ip", c.ClientIP(),
			"body_size", len(body),
		)
		h.Metrics.IncWebhookEvent(kind, metrics.WebhookResultRejected)
		response.ErrorWithStatus(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid signature")
		return nil, false
	}
	return body, true
}

func (h *Handler) respondWebhookError(c *gin.Context, kind string, err error) {
	appErr := response.FromServiceError(err)
	result := metrics.WebhookResultRejected
	if appErr.Code >= response.CodeInternal {
		result = metrics.WebhookResultFailed
		requestLog(c).Errorw("webhook_internal_error", "kind", kind, "error", err)
	}
	h.Metrics.IncWebhookEvent(kind, result)
	response.ErrorWithStatus(c, appErr.HTTPStatus(), appErr.Code, appErr.Message)
}

// SignPayload 计算回调签名（十六进制 HMAC-SHA256）
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验签名，兼容 "sha256=" 前缀
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(strings.ToLower(signature), signaturePrefix)
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
