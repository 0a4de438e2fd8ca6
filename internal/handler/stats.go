package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/stats"
)

type StatsHandler struct {
	Provider *stats.Provider
}

func (h *StatsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/stats")
	group.GET("", h.snapshot)
	group.GET("/upcoming", h.upcoming)
}

func (h *StatsHandler) snapshot(c *gin.Context) {
	if h.Provider == nil {
		Error(c, http.StatusInternalServerError, "stats unavailable", nil)
		return
	}
	snap, err := h.Provider.Snapshot(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, snap, nil)
}

func (h *StatsHandler) upcoming(c *gin.Context) {
	if h.Provider == nil {
		Error(c, http.StatusInternalServerError, "stats unavailable", nil)
		return
	}
	days := 7
	if v, err := strconv.Atoi(c.DefaultQuery("days", "7")); err == nil && v > 0 {
		days = v
	}
	items, err := h.Provider.ListUpcoming(c.Request.Context(), days)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"days": days})
}
