package public

import (
	handlershared "github.com/partnerhub/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getPartnerID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, handlershared.ContextKeyPartnerID)
}
