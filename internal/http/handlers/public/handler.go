package public

import "github.com/partnerhub/internal/provider"

// Handler 外部回调与合作伙伴自助接口处理器
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
