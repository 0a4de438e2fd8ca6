package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

type RuleHandler struct {
	Repo  repository.Repository
	Clock clock.Clock
}

func (h *RuleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/rules")
	group.GET("", h.listRules)
	group.POST("", h.createRule)
	group.GET("/:id", h.getRule)
	group.PUT("/:id", h.updateRule)
	group.DELETE("/:id", h.deleteRule)
}

type ruleRequest struct {
	Name       string                 `json:"name" binding:"required"`
	Enabled    bool                   `json:"enabled"`
	Position   int                    `json:"position"`
	Conditions *models.RuleConditions `json:"conditions"`
	Actions    *models.RuleActions    `json:"actions"`
}

func (h *RuleHandler) createRule(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	now := h.now()
	item := &models.Rule{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Enabled:   req.Enabled,
		Position:  req.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := encodeRulePayload(item, req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.UpsertRule(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *RuleHandler) listRules(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListRules(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *RuleHandler) getRule(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	item, err := h.Repo.GetRule(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "rule not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *RuleHandler) updateRule(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	existing, err := h.Repo.GetRule(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "rule not found", nil)
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Enabled = req.Enabled
	existing.Position = req.Position
	existing.UpdatedAt = h.now()
	if err := encodeRulePayload(existing, req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.UpsertRule(c.Request.Context(), existing); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, existing, nil)
}

func (h *RuleHandler) deleteRule(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	ok, err := h.Repo.DeleteRule(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "rule not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

func encodeRulePayload(item *models.Rule, req ruleRequest) error {
	if req.Conditions != nil {
		raw, err := json.Marshal(req.Conditions)
		if err != nil {
			return err
		}
		item.Conditions = datatypes.JSON(raw)
	}
	if req.Actions != nil {
		raw, err := json.Marshal(req.Actions)
		if err != nil {
			return err
		}
		item.Actions = datatypes.JSON(raw)
	}
	return nil
}

func (h *RuleHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now()
	}
	return time.Now().UTC()
}
