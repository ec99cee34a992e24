package handler

import (
	"net/http"
	"strconv"

	"instoo/internal/commands"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// FollowHandler serves the caller's own follow list under /v1/me.
type FollowHandler struct {
	follows *services.FollowService
}

func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

func (h *FollowHandler) ListMine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	items, err := h.follows.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FollowsFromViews(items)))
}

func (h *FollowHandler) History(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var limit int
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			invalidRequest(c, "limit must be a number")
			return
		}
		limit = n
	}
	items, err := h.follows.History(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FollowHistoryFromRecords(items)))
}

func (h *FollowHandler) BatchToggle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req httpdto.BatchToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "items must hold 1 to 100 entries with streamerUuid and isActive")
		return
	}
	result, err := h.follows.BatchToggle(c.Request.Context(), actor, commands.BatchToggleFollowsCommand{Items: req.Toggles()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(result))
}
