package api

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const allowHeaders = "authorization, x-client-info, apikey, content-type"

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func NewRouter(logger *zap.Logger, h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiGroup := router.Group("/api", cors())
	{
		apiGroup.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

		apiGroup.GET("/canvas-sync", h.CanvasSyncHandler)
		apiGroup.POST("/canvas-sync", h.CanvasSyncHandler)

		apiGroup.GET("/board", h.ListBoardHandler)
		apiGroup.GET("/board/columns/:column", h.ColumnHandler)
		apiGroup.POST("/board/assignments", h.AddAssignmentHandler)
		apiGroup.PATCH("/board/assignments/:id", h.MoveAssignmentHandler)
		apiGroup.DELETE("/board/assignments/:id", h.DeleteAssignmentHandler)
		apiGroup.POST("/board/sync", h.BoardSyncHandler)

		apiGroup.GET("/health", h.HealthCheckHandler)
	}

	return router
}
