package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetContextUint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := GetContextUint(c, ContextKeyPartnerID); ok {
		t.Fatalf("missing key should fail")
	}
	if !strings.Contains(w.Body.String(), `"status_code":401`) {
		t.Fatalf("missing key want 401 envelope, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(ContextKeyPartnerID, uint(42))
	if id, ok := GetContextUint(c, ContextKeyPartnerID); !ok || id != 42 {
		t.Fatalf("want 42 got %d ok=%v", id, ok)
	}
}

func TestParseUintParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "abc": false} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, ok := ParseUintParam(c, "id")
		if ok != want {
			t.Fatalf("ParseUintParam(%q) ok=%v want %v", raw, ok, want)
		}
		if !ok && !strings.Contains(w.Body.String(), `"status_code":400`) {
			t.Fatalf("invalid id %q want 400 envelope, got %s", raw, w.Body.String())
		}
	}
}
