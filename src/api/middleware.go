package api

import (
	"GrowthDashboard/src/storage"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger 把每个请求写入日志，5xx 记为 ERROR，4xx 记为 WARNING
func RequestLogger(logger *storage.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		level := storage.INFO
		switch {
		case status >= 500:
			level = storage.ERROR
		case status >= 400:
			level = storage.WARNING
		}

		logger.Log(level, fmt.Sprintf("[%s] %s %s %d %v %s",
			c.Request.Method,
			path,
			c.ClientIP(),
			status,
			time.Since(start),
			c.Errors.String(),
		))
	}
}
