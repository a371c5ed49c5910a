package service

import (
	"errors"
	"strings"
	"time"

	"github.com/partnerhub/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin 管理端令牌角色
const RoleAdmin = "admin"

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("token invalid")

// AdminClaims 管理端 JWT 声明
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// PartnerClaims 合作伙伴 JWT 声明
type PartnerClaims struct {
	PartnerID   uint   `json:"partner_id"`
	PartnerCode string `json:"partner_code"`
	jwt.RegisteredClaims
}

// TokenService 签发与校验访问令牌，登录由外部身份系统负责
type TokenService struct {
	adminCfg   config.JWTConfig
	partnerCfg config.JWTConfig
}

// NewTokenService 创建令牌服务
func NewTokenService(adminCfg, partnerCfg config.JWTConfig) *TokenService {
	return &TokenService{adminCfg: adminCfg, partnerCfg: partnerCfg}
}

// IssueAdminToken 签发管理端令牌
func (s *TokenService) IssueAdminToken(subject string) (string, time.Time, error) {
	expiresAt := expiry(s.adminCfg)
	claims := AdminClaims{
		Role:             RoleAdmin,
		RegisteredClaims: registeredClaims(strings.TrimSpace(subject), expiresAt),
	}
	token, err := sign(s.adminCfg.SecretKey, claims)
	return token, expiresAt, err
}

// IssuePartnerToken 签发合作伙伴令牌
func (s *TokenService) IssuePartnerToken(partnerID uint, partnerCode string) (string, time.Time, error) {
	expiresAt := expiry(s.partnerCfg)
	claims := PartnerClaims{
		PartnerID:        partnerID,
		PartnerCode:      partnerCode,
		RegisteredClaims: registeredClaims(partnerCode, expiresAt),
	}
	token, err := sign(s.partnerCfg.SecretKey, claims)
	return token, expiresAt, err
}

// ParseAdminToken 校验管理端令牌
func (s *TokenService) ParseAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parse(s.adminCfg.SecretKey, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParsePartnerToken 校验合作伙伴令牌
func (s *TokenService) ParsePartnerToken(tokenString string) (*PartnerClaims, error) {
	claims := &PartnerClaims{}
	if err := parse(s.partnerCfg.SecretKey, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.PartnerID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func expiry(cfg config.JWTConfig) time.Time {
	hours := cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Now().Add(time.Duration(hours) * time.Hour)
}

func registeredClaims(subject string, expiresAt time.Time) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrConfiguration
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parse(secret, tokenString string, claims jwt.Claims) error {
	if strings.TrimSpace(secret) == "" {
		return ErrConfiguration
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
