package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-tracker/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// 附件上传路由使用 storage.max_upload_bytes，其余路由使用全局上限
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Request body too large.")
				return
			}
		}
	}
}
