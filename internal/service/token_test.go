package service

import (
	"errors"
	"testing"

	"github.com/partnerhub/internal/config"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(
		config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1},
		config.JWTConfig{SecretKey: "partner-secret", ExpireHours: 1},
	)

	adminToken, _, err := svc.IssueAdminToken("ops")
	if err != nil {
		t.Fatalf("issue admin token failed: %v", err)
	}
	claims, err := svc.ParseAdminToken(adminToken)
	if err != nil || claims.Role != RoleAdmin || claims.Subject != "ops" {
		t.Fatalf("unexpected admin claims: %+v err=%v", claims, err)
	}

	partnerToken, _, err := svc.IssuePartnerToken(42, "F0ABC")
	if err != nil {
		t.Fatalf("issue partner token failed: %v", err)
	}
	pc, err := svc.ParsePartnerToken(partnerToken)
	if err != nil || pc.PartnerID != 42 || pc.PartnerCode != "F0ABC" {
		t.Fatalf("unexpected partner claims: %+v err=%v", pc, err)
	}

	// 不同密钥互不通用
	if _, err := svc.ParseAdminToken(partnerToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected partner token rejected by admin parser, got %v", err)
	}
	if _, err := svc.ParsePartnerToken(adminToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected admin token rejected by partner parser, got %v", err)
	}
	if _, err := svc.ParsePartnerToken("garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected garbage rejected, got %v", err)
	}
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{}, config.JWTConfig{})
	if _, _, err := svc.IssueAdminToken("ops"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
