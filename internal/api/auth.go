package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// basicAuthMiddleware 简单的 Basic Auth 访问密码，只挂在 /api/v1 分组上，/health 不受影响
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "DevNotes"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
