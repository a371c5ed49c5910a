package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func TestFromServiceErrorMapsCategories(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrPartnerNotEligible, CodeBadRequest},
		{service.ErrCommissionNotFound, CodeNotFound},
		{fmt.Errorf("%w: locked -> pending", service.ErrInvalidTransition), CodeConflict},
		{service.ErrTierConfigMissing, CodeInternal},
		{errors.New("driver: bad connection"), CodeInternal},
	}
	for _, tc := range cases {
		got := FromServiceError(tc.err)
		if got.Code != tc.code {
			t.Fatalf("%v: want code %d, got %d", tc.err, tc.code, got.Code)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("%v: wrapped error lost", tc.err)
		}
	}
	if FromServiceError(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
	if msg := FromServiceError(service.ErrTierConfigMissing).Message; msg != "service misconfigured" {
		t.Fatalf("configuration details must not leak, got %q", msg)
	}
}

func TestBuildPagination(t *testing.T) {
	p := BuildPagination(2, 20, 41)
	if p.TotalPage != 3 || p.Page != 2 || p.PageSize != 20 || p.Total != 41 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if BuildPagination(1, 0, 10).TotalPage != 0 {
		t.Fatalf("zero page size must not divide by zero")
	}
}

func TestAppErrorHTTPStatus(t *testing.T) {
	cases := map[int]int{
		CodeBadRequest:      http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeInternal:        http.StatusInternalServerError,
		CodeOK:              http.StatusInternalServerError,
		499:                 http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := WrapError(code, "x", nil).HTTPStatus(); got != want {
			t.Fatalf("code %d: want http %d, got %d", code, want, got)
		}
	}
}

func TestFromBindErrorDescribesFields(t *testing.T) {
	type payload struct {
		InvoiceCode string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	appErr := FromBindError(err)
	if appErr.Code != CodeBadRequest {
		t.Fatalf("want 400, got %d", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "InvoiceCode failed required") {
		t.Fatalf("unexpected message %q", appErr.Message)
	}
	if FromBindError(nil) != nil {
		t.Fatalf("nil bind error should map to nil")
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-9")

	Error(c, CodeNotFound, "partner not found")
	if w.Code != http.StatusOK {
		t.Fatalf("envelope errors use http 200, got %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != CodeNotFound || body.RequestID != "req-9" || body.Data != nil {
		t.Fatalf("unexpected body: %+v", body)
	}
}
