package admin

import "github.com/partnerhub/internal/provider"

// Handler 管理端接口，所有路由都经过 AdminAuthMiddleware
type Handler struct {
	*provider.Container
}

// New
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
