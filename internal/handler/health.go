package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	DB *gorm.DB
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
}

func (h *HealthHandler) health(c *gin.Context) {
	status := map[string]any{"status": "ok"}
	if h.DB != nil {
		sqldb, err := h.DB.DB()
		if err == nil {
			err = sqldb.PingContext(c.Request.Context())
		}
		if err != nil {
			status["status"] = "degraded"
			status["db"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["db"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
