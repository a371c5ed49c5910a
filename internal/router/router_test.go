package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/http/handlers/public"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec-test"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.InitDefaultTiers(db); err != nil {
		t.Fatalf("init tiers failed: %v", err)
	}
	if err := models.InitDefaultLockPaymentSetting(db); err != nil {
		t.Fatalf("init lock setting failed: %v", err)
	}
	cfg := &config.Config{
		Server:     config.ServerConfig{Mode: "debug"},
		JWT:        config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1},
		PartnerJWT: config.JWTConfig{SecretKey: "partner-secret", ExpireHours: 1},
		Webhook:    config.WebhookConfig{Secret: testWebhookSecret},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	container := provider.Build(cfg, db, nil, metrics.NewForTest())
	return SetupRouter(cfg, container), container
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %s %s response failed: %v body=%s", method, path, err, w.Body.String())
	}
	return w, resp
}

func postWebhook(t *testing.T, r *gin.Engine, path string, payload []byte, signature string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(public.HeaderWebhookSignature, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal webhook response failed: %v body=%s", err, w.Body.String())
	}
	return w, resp
}

func TestRouterCommissionLifecycle(t *testing.T) {
	r, container := setupRouterTest(t)
	adminToken, _, err := container.TokenService.IssueAdminToken("ops")
	if err != nil {
		t.Fatalf("issue admin token failed: %v", err)
	}

	_, resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/partners", adminToken, gin.H{
		"partner_code": "F0RT",
		"full_name":    "Router Partner",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create partner failed: %+v", resp)
	}
	var partner models.Partner
	if err := json.Unmarshal(resp.Data, &partner); err != nil {
		t.Fatalf("decode partner failed: %v", err)
	}
	if _, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/partners/%d/approve", partner.ID), adminToken, nil); resp.StatusCode != 0 {
		t.Fatalf("approve partner failed: %+v", resp)
	}

	event := []byte(`{"invoice_code":"INV-RT-1","invoice_amount":"1000000","invoice_date":"` +
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339) +
		`","invoice_status":"paid","partner_reference":"F0RT","referred_customer_reference":"CUST-RT","is_first_order":true}`)

	w, _ := postWebhook(t, r, "/api/v1/webhooks/orders", event, "deadbeef")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature want 401 got %d", w.Code)
	}

	signature := "sha256=" + public.SignPayload(testWebhookSecret, event)
	w, resp = postWebhook(t, r, "/api/v1/webhooks/orders", event, signature)
	if w.Code != http.StatusOK || resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"action":"created"`) {
		t.Fatalf("signed webhook should create commission, code=%d resp=%+v", w.Code, resp)
	}
	_, resp = postWebhook(t, r, "/api/v1/webhooks/orders", event, signature)
	if !strings.Contains(string(resp.Data), `"action":"duplicate"`) {
		t.Fatalf("replayed webhook should be duplicate, got %s", resp.Data)
	}

	partnerToken, _, err := container.TokenService.IssuePartnerToken(partner.ID, partner.PartnerCode)
	if err != nil {
		t.Fatalf("issue partner token failed: %v", err)
	}
	if _, resp = doJSON(t, r, http.MethodGet, "/api/v1/partner/dashboard", partnerToken, nil); resp.StatusCode != 0 {
		t.Fatalf("dashboard failed: %+v", resp)
	}
	if _, resp = doJSON(t, r, http.MethodGet, "/api/v1/partner/customers?page=1&limit=10", partnerToken, nil); resp.StatusCode != 0 {
		t.Fatalf("customers failed: %+v", resp)
	}

	cancel := []byte(`{"invoice_code":"INV-RT-1","cancelled_at":"` + time.Now().UTC().Format(time.RFC3339) + `","reason":"refund"}`)
	w, resp = postWebhook(t, r, "/api/v1/webhooks/invoice-cancelled", cancel, public.SignPayload(testWebhookSecret, cancel))
	if w.Code != http.StatusOK || resp.StatusCode != 0 {
		t.Fatalf("cancel webhook failed: code=%d resp=%+v", w.Code, resp)
	}
	record, err := container.CommissionRepo.GetByInvoiceCode("INV-RT-1")
	if err != nil || record == nil {
		t.Fatalf("reload record failed: %v", err)
	}
	if record.Status != constants.CommissionStatusCancelled {
		t.Fatalf("expected cancelled record, got %s", record.Status)
	}
}

func TestRouterAdminJobsAndAuth(t *testing.T) {
	r, container := setupRouterTest(t)

	if _, resp := doJSON(t, r, http.MethodGet, "/api/v1/admin/jobs", "", nil); resp.StatusCode != 401 {
		t.Fatalf("admin route without token want 401 got %+v", resp)
	}

	adminToken, _, err := container.TokenService.IssueAdminToken("ops")
	if err != nil {
		t.Fatalf("issue admin token failed: %v", err)
	}
	_, resp := doJSON(t, r, http.MethodGet, "/api/v1/admin/jobs", adminToken, nil)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), constants.JobLockSweep) {
		t.Fatalf("list jobs failed: %+v", resp)
	}
	if _, resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/jobs/vacuum", adminToken, nil); resp.StatusCode != 404 {
		t.Fatalf("unknown job want 404 got %+v", resp)
	}
	for i := 0; i < 2; i++ {
		if _, resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/jobs/"+constants.JobLockSweep, adminToken, nil); resp.StatusCode != 0 {
			t.Fatalf("lock sweep run %d failed: %+v", i, resp)
		}
	}
	_, resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/jobs/"+constants.JobLockSweep+"?async=true", adminToken, nil)
	if resp.StatusCode != 0 || strings.Contains(string(resp.Data), `"queued"`) {
		t.Fatalf("async without queue should run inline: %+v", resp)
	}
	if _, resp = doJSON(t, r, http.MethodGet, "/api/v1/admin/commissions/abc", adminToken, nil); resp.StatusCode != 400 {
		t.Fatalf("invalid id want 400 got %+v", resp)
	}
	if _, resp = doJSON(t, r, http.MethodGet, "/api/v1/admin/commissions/999", adminToken, nil); resp.StatusCode != 404 {
		t.Fatalf("missing commission want 404 got %+v", resp)
	}
	_, resp = doJSON(t, r, http.MethodPut, "/api/v1/admin/settings/lock-payment", adminToken, gin.H{
		"lock_period_days": 400,
		"payment_day":      5,
	})
	if resp.StatusCode != 400 {
		t.Fatalf("out of range lock period want 400 got %+v", resp)
	}
}

func TestRouterWebhookRejectsInvalidEvent(t *testing.T) {
	r, _ := setupRouterTest(t)
	payload := []byte(`{"invoice_code":"","invoice_status":"paid"}`)
	w, resp := postWebhook(t, r, "/api/v1/webhooks/orders", payload, public.SignPayload(testWebhookSecret, payload))
	if w.Code != http.StatusBadRequest || resp.StatusCode != 400 {
		t.Fatalf("invalid event want 400, got code=%d resp=%+v", w.Code, resp)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	r, _ := setupRouterTest(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics want 200 got %d", w.Code)
	}
}
