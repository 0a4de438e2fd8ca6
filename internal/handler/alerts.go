package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

type AlertHandler struct {
	Repo  repository.Repository
	Clock clock.Clock
}

func (h *AlertHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/alerts")
	group.GET("", h.listAlerts)
	group.GET("/:id", h.getAlert)
	group.POST("/:id/ack", h.acknowledgeAlert)
}

func (h *AlertHandler) listAlerts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListAlertsParams{}
	if v := strings.TrimSpace(c.Query("timer_id")); v != "" {
		params.TimerID = &v
	}
	if v := strings.TrimSpace(c.Query("strategy_id")); v != "" {
		params.StrategyID = &v
	}
	if v := strings.TrimSpace(c.Query("kind")); v != "" {
		kind := models.AlertKind(v)
		params.Kind = &kind
	}
	switch strings.ToLower(c.Query("acknowledged")) {
	case "true":
		acked := true
		params.Acknowledged = &acked
	case "false":
		acked := false
		params.Acknowledged = &acked
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		params.Offset = v
	}
	items, err := h.Repo.ListAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}

func (h *AlertHandler) getAlert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	item, err := h.Repo.GetAlert(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "alert not found", nil)
		return
	}
	Ok(c, item, nil)
}

type ackRequest struct {
	By string `json:"by"`
}

func (h *AlertHandler) acknowledgeAlert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req ackRequest
	_ = c.ShouldBindJSON(&req)
	var by *string
	if v := strings.TrimSpace(req.By); v != "" {
		by = &v
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock.Now()
	}
	ok, err := h.Repo.AcknowledgeAlert(c.Request.Context(), id, by, now)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "alert not found or already acknowledged", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "acknowledged": true}, nil)
}
