package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/artifact-git-sync/pkg/app"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 捕获 handler 中的 panic，记录堆栈并返回 ErrorServerInternal
func RecoveryWithLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			var msg string
			fields := []zap.Field{
				zap.String(logger.FieldTraceID, GetTraceIDFromGin(c)),
				zap.String("router", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("query", c.Request.URL.RawQuery),
				zap.String("ip", c.ClientIP()),
				zap.String(logger.FieldRepositoryID, c.Param("id")),
			}
			switch v := rec.(type) {
			case error:
				msg = v.Error()
				fields = append(fields, zap.Error(v))
			case string:
				msg = v
				fields = append(fields, zap.String("panic_value", v))
			default:
				msg = fmt.Sprintf("%v", v)
				fields = append(fields, zap.String("panic_value", msg))
			}
			fields = append(fields, zap.String("stack", string(debug.Stack())))
			log.Error("Recovered from panic", fields...)

			app.NewResponse(c).ToResponse(code.ErrorServerInternal.WithDetails(msg))
			c.Abort()
		}()

		c.Next()
	}
}
