package handler

import (
	"net/http"

	"instoo/internal/commands"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type StreamerHandler struct {
	streamers *services.StreamerService
	follows   *services.FollowService
}

func NewStreamerHandler(streamers *services.StreamerService, follows *services.FollowService) *StreamerHandler {
	return &StreamerHandler{streamers: streamers, follows: follows}
}

func (h *StreamerHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req httpdto.CreateStreamerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	st, err := h.streamers.Create(c.Request.Context(), actor, commands.CreateStreamerCommand{
		Name:            req.Name,
		ProfileImageURL: req.ProfileImageURL,
		Description:     req.Description,
		Platforms:       req.PlatformList(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.StreamerFromRecord(st)))
}

func (h *StreamerHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	st, err := h.streamers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StreamerFromRecord(st)))
}

func (h *StreamerHandler) List(c *gin.Context) {
	var req httpdto.ListStreamersQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c, "invalid query")
		return
	}
	page, err := h.streamers.List(c.Request.Context(), req.ToListQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StreamerPageFromPage(page)))
}

func (h *StreamerHandler) Search(c *gin.Context) {
	items, err := h.streamers.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StreamersFromRecords(items)))
}

func (h *StreamerHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	var req httpdto.UpdateStreamerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	st, err := h.streamers.Update(c.Request.Context(), actor, commands.UpdateStreamerCommand{
		StreamerUUID:      id,
		ExpectedUpdatedAt: req.LastUpdatedAt,
		Patch:             req.Patch(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StreamerFromRecord(st)))
}

func (h *StreamerHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	if err := h.streamers.Delete(c.Request.Context(), actor, commands.DeleteStreamerCommand{StreamerUUID: id}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StreamerHandler) Verify(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	var req httpdto.VerifyStreamerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	st, err := h.streamers.Verify(c.Request.Context(), actor, commands.VerifyStreamerCommand{StreamerUUID: id, Verified: *req.IsVerified})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StreamerFromRecord(st)))
}

func (h *StreamerHandler) Follow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	count, err := h.follows.Follow(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FollowResponse{IsFollowing: true, IsActive: true, FollowCount: count}))
}

func (h *StreamerHandler) Unfollow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	count, err := h.follows.Unfollow(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FollowResponse{FollowCount: count}))
}

func (h *StreamerHandler) FollowStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	status, err := h.follows.Status(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FollowResponse{IsFollowing: status.IsFollowing, IsActive: status.IsActive}))
}
