package router

import (
	"errors"
	"strings"

	"github.com/partnerhub/internal/cache"
	handlershared "github.com/partnerhub/internal/http/handlers/shared"
	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	errAuthHeaderMissing = errors.New("authorization header missing")
	errAuthHeaderInvalid = errors.New("authorization header invalid")
)

// denyUnauthorized 写入 401 信封并终止链路
func denyUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, msg)
	c.Abort()
}

// bearerToken 解析 Authorization: Bearer <token>
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errAuthHeaderMissing
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || scheme != "Bearer" || token == "" {
		return "", errAuthHeaderInvalid
	}
	return token, nil
}

// AdminAuthMiddleware 管理端 JWT 鉴权
func AdminAuthMiddleware(tokenService *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenService == nil {
			logger.Errorw("admin_auth_token_service_unavailable")
			denyUnauthorized(c, "unauthorized")
			return
		}
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			denyUnauthorized(c, err.Error())
			return
		}
		claims, err := tokenService.ParseAdminToken(raw)
		if err != nil {
			denyUnauthorized(c, "token invalid")
			return
		}
		c.Set(handlershared.ContextKeyAdminSub, claims.Subject)
		c.Next()
	}
}

// PartnerAuthMiddleware 合作伙伴 JWT 鉴权，停用或未审核返回 403
func PartnerAuthMiddleware(tokenService *service.TokenService, partnerRepo repository.PartnerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenService == nil || partnerRepo == nil {
			logger.Errorw("partner_auth_dependency_unavailable",
				"token_service_nil", tokenService == nil,
				"partner_repo_nil", partnerRepo == nil,
			)
			denyUnauthorized(c, "unauthorized")
			return
		}
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			denyUnauthorized(c, err.Error())
			return
		}
		claims, err := tokenService.ParsePartnerToken(raw)
		if err != nil || claims.PartnerID == 0 {
			denyUnauthorized(c, "token invalid")
			return
		}

		state, err := cache.LoadPartnerAuthState(c.Request.Context(), claims.PartnerID, partnerRepo.GetByID)
		switch {
		case err != nil:
			logger.Warnw("partner_auth_state_load_failed", "partner_id", claims.PartnerID, "error", err)
			denyUnauthorized(c, "token invalid")
			return
		case state == nil:
			denyUnauthorized(c, "token invalid")
			return
		case !state.Eligible():
			response.Forbidden(c, "partner is inactive or not approved")
			c.Abort()
			return
		}

		c.Set(handlershared.ContextKeyPartnerID, state.PartnerID)
		c.Set(handlershared.ContextKeyPartnerCode, state.PartnerCode)
		c.Next()
	}
}
