package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/partnerhub/internal/config"
	handlershared "github.com/partnerhub/internal/http/handlers/shared"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func newTestTokenService() *service.TokenService {
	return service.NewTokenService(
		config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1},
		config.JWTConfig{SecretKey: "partner-secret", ExpireHours: 1},
	)
}

func decodeStatusCode(t *testing.T, body []byte) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTestTokenService()

	r := gin.New()
	r.Use(AdminAuthMiddleware(tokens))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(handlershared.ContextKeyAdminSub)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("missing header: status_code want 401 got %d", code)
	}

	partnerToken, _, err := tokens.IssuePartnerToken(1, "F0X")
	if err != nil {
		t.Fatalf("issue partner token failed: %v", err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+partnerToken)
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("partner token: status_code want 401 got %d", code)
	}

	adminToken, _, err := tokens.IssueAdminToken("ops")
	if err != nil {
		t.Fatalf("issue admin token failed: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"subject":"ops"`) {
		t.Fatalf("expected admin subject in context, got %s", w.Body.String())
	}
}

func setupPartnerRepo(t *testing.T) (*gorm.DB, repository.PartnerRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:router_mw_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Partner{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db, repository.NewPartnerRepository(db)
}

func TestPartnerAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTestTokenService()
	db, repo := setupPartnerRepo(t)

	approved := &models.Partner{PartnerCode: "F0OK", FullName: "Approved", IsActive: true, IsApproved: true}
	pending := &models.Partner{PartnerCode: "F0WAIT", FullName: "Pending", IsActive: true}
	for _, p := range []*models.Partner{approved, pending} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("create partner failed: %v", err)
		}
	}

	r := gin.New()
	r.Use(PartnerAuthMiddleware(tokens, repo))
	r.GET("/partner/ping", func(c *gin.Context) {
		id, _ := c.Get(handlershared.ContextKeyPartnerID)
		c.JSON(http.StatusOK, gin.H{"partner_id": id})
	})

	call := func(partner *models.Partner) *httptest.ResponseRecorder {
		token, _, err := tokens.IssuePartnerToken(partner.ID, partner.PartnerCode)
		if err != nil {
			t.Fatalf("issue token failed: %v", err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/partner/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w
	}

	w := call(approved)
	if !strings.Contains(w.Body.String(), fmt.Sprintf(`"partner_id":%d`, approved.ID)) {
		t.Fatalf("expected partner id in context, got %s", w.Body.String())
	}

	w = call(pending)
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 403 {
		t.Fatalf("unapproved partner: status_code want 403 got %d", code)
	}

	w = call(&models.Partner{ID: 9999, PartnerCode: "F0GONE"})
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("unknown partner: status_code want 401 got %d", code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{"", "", errAuthHeaderMissing},
		{"Bearer abc", "abc", nil},
		{"Bearer   abc  ", "abc", nil},
		{"Basic abc", "", errAuthHeaderInvalid},
		{"Bearer", "", errAuthHeaderInvalid},
		{"Bearer  ", "", errAuthHeaderInvalid},
	}
	for _, tc := range cases {
		token, err := bearerToken(tc.header)
		if token != tc.token || err != tc.err {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, token, err, tc.token, tc.err)
		}
	}
}

func TestAccessLogLevel(t *testing.T) {
	if got := accessLogLevel("/healthz", http.StatusOK, false); got != zapcore.DebugLevel {
		t.Fatalf("health probe want debug got %s", got)
	}
	if got := accessLogLevel("/api/v1/admin/partners", http.StatusOK, false); got != zapcore.InfoLevel {
		t.Fatalf("ok want info got %s", got)
	}
	if got := accessLogLevel("/healthz", http.StatusServiceUnavailable, false); got != zapcore.ErrorLevel {
		t.Fatalf("503 want error got %s", got)
	}
	if got := accessLogLevel("/api/v1/webhooks/orders", http.StatusTooManyRequests, false); got != zapcore.WarnLevel {
		t.Fatalf("429 want warn got %s", got)
	}
	if got := accessLogLevel("/x", http.StatusOK, true); got != zapcore.ErrorLevel {
		t.Fatalf("gin errors want error got %s", got)
	}
}

func TestRecoveryMiddlewareReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(RecoveryMiddleware(zap.New(core)))
	r.Use(RequestIDMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestIDHeader, "req-boom")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 500 {
		t.Fatalf("status_code want 500 got %d", code)
	}
	if !strings.Contains(w.Body.String(), `"request_id":"req-boom"`) {
		t.Fatalf("expected request id in envelope, got %s", w.Body.String())
	}
	entries := logs.FilterMessage("panic_recovered").All()
	if len(entries) != 1 {
		t.Fatalf("expected one panic log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["panic"] != "boom" {
		t.Fatalf("panic field want boom got %v", entries[0].ContextMap()["panic"])
	}
}
