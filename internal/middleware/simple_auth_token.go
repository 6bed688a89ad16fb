package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/haierkeys/artifact-git-sync/pkg/app"
	"github.com/haierkeys/artifact-git-sync/pkg/code"

	"github.com/gin-gonic/gin"
)

// SimpleAuthTokenWithConfig 简单 Token 认证中间件（使用注入的配置）
// authToken 为空时不校验，支持 Bearer 前缀
func SimpleAuthTokenWithConfig(authToken string) gin.HandlerFunc {
	return func(c *gin.Context) {

		if authToken == "" {
			c.Next()
			return
		}

		response := app.NewResponse(c)

		var token string

		if s, exist := c.GetQuery("authorization"); exist {
			token = s
		} else if s, exist = c.GetQuery("Authorization"); exist {
			token = s
		} else if s = c.GetHeader("Authorization"); len(s) != 0 {
			token = s
		}
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

		if subtle.ConstantTimeCompare([]byte(token), []byte(authToken)) != 1 {
			response.ToResponse(code.ErrorInvalidAuthToken)
			c.Abort()
			return
		}
		c.Next()
	}
}
