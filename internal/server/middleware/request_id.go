package middleware

import (
	"github.com/gin-gonic/gin"

	"spurline/internal/pkg/id"
)

// RequestID 请求ID中间件
// 透传客户端带来的 X-Request-ID，缺省时生成新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
