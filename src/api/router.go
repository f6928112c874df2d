package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter 注册全部路由
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))

	// 展示层与接口可能不同源
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", h.Health)
	r.GET("/brand", h.Brand)
	r.GET("/logs", h.Logs)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/filters", h.Filters)
		v1.GET("/views/:view", h.View)
		v1.GET("/orders", h.Orders)
		v1.GET("/export/:view", h.Export)
		v1.POST("/reload", h.Reload)
	}

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, "接口不存在: "+c.Request.URL.Path)
	})
	return r
}
