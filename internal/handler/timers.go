package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/scheduler"
)

type TimerHandler struct {
	Repo      repository.Repository
	Scheduler *scheduler.Scheduler
}

func (h *TimerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/timers")
	group.GET("", h.listTimers)
	group.POST("", h.createTimer)
	group.GET("/:id", h.getTimer)
	group.PUT("/:id", h.updateTimer)
	group.DELETE("/:id", h.deleteTimer)
	group.POST("/:id/start", h.startTimer)
	group.POST("/:id/stop", h.stopTimer)
	group.POST("/:id/trigger", h.triggerTimer)
}

type createTimerRequest struct {
	StrategyID string              `json:"strategy_id" binding:"required"`
	Name       string              `json:"name" binding:"required"`
	Schedule   models.ScheduleSpec `json:"schedule" binding:"required"`
	OwnerID    *string             `json:"owner_id"`
}

func (h *TimerHandler) createTimer(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	var req createTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	item, err := h.Scheduler.CreateTimer(c.Request.Context(), scheduler.CreateTimerInput{
		StrategyID: strings.TrimSpace(req.StrategyID),
		Name:       strings.TrimSpace(req.Name),
		Schedule:   req.Schedule,
		OwnerID:    req.OwnerID,
	})
	if errors.Is(err, scheduler.ErrInvalidSchedule) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *TimerHandler) listTimers(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTimersParams{}
	if v := strings.TrimSpace(c.Query("strategy_id")); v != "" {
		params.StrategyID = &v
	}
	if v := strings.TrimSpace(c.Query("owner_id")); v != "" {
		params.OwnerID = &v
	}
	switch strings.ToLower(c.Query("active")) {
	case "true":
		active := true
		params.Active = &active
	case "false":
		active := false
		params.Active = &active
	}
	items, err := h.Repo.ListTimers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTimers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}

func (h *TimerHandler) getTimer(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	item, err := h.Repo.GetTimer(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "timer not found", nil)
		return
	}
	Ok(c, item, nil)
}

type updateTimerRequest struct {
	Name       *string              `json:"name"`
	StrategyID *string              `json:"strategy_id"`
	OwnerID    *string              `json:"owner_id"`
	Schedule   *models.ScheduleSpec `json:"schedule"`
}

func (h *TimerHandler) updateTimer(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req updateTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	ok, err := h.Scheduler.UpdateTimer(c.Request.Context(), id, scheduler.UpdateTimerInput{
		Name:       req.Name,
		StrategyID: req.StrategyID,
		OwnerID:    req.OwnerID,
		Schedule:   req.Schedule,
	})
	if errors.Is(err, scheduler.ErrInvalidSchedule) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "timer not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "updated": true}, nil)
}

func (h *TimerHandler) deleteTimer(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	ok, err := h.Scheduler.DeleteTimer(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "timer not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

func (h *TimerHandler) startTimer(c *gin.Context) {
	h.setRunning(c, true)
}

func (h *TimerHandler) stopTimer(c *gin.Context) {
	h.setRunning(c, false)
}

func (h *TimerHandler) setRunning(c *gin.Context, running bool) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var ok bool
	var err error
	if running {
		ok, err = h.Scheduler.StartTimer(c.Request.Context(), id)
	} else {
		ok, err = h.Scheduler.StopTimer(c.Request.Context(), id)
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "timer not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "active": running}, nil)
}

type triggerRequest struct {
	Reason string `json:"reason"`
}

func (h *TimerHandler) triggerTimer(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req triggerRequest
	_ = c.ShouldBindJSON(&req)
	item, err := h.Scheduler.TriggerManually(c.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "timer not found", nil)
		return
	}
	Ok(c, item, nil)
}
