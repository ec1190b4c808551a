package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 依赖探活接口（MongoDB / Redis 客户端均实现）
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	mongo Pinger
	redis Pinger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(mongo, redis Pinger) *HealthHandler {
	return &HealthHandler{mongo: mongo, redis: redis}
}

// Health 存活检查，只要进程在就返回 ok
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪检查，探测 MongoDB 和 Redis，任一不可用返回 503
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{
		"mongodb": "ok",
		"redis":   "ok",
	}
	status := http.StatusOK

	if h.mongo != nil {
		if err := h.mongo.Ping(ctx); err != nil {
			checks["mongodb"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
