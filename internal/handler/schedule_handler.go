package handler

import (
	"net/http"
	"strconv"

	"instoo/internal/commands"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	schedules *services.ScheduleService
	likes     *services.LikeService
}

func NewScheduleHandler(schedules *services.ScheduleService, likes *services.LikeService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, likes: likes}
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req httpdto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	v, err := h.schedules.Create(c.Request.Context(), actor, commands.CreateScheduleCommand{Draft: req.Draft()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.ScheduleFromView(v)))
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	v, err := h.schedules.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ScheduleFromView(v)))
}

func (h *ScheduleHandler) List(c *gin.Context) {
	var req httpdto.ListSchedulesQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c, "invalid query")
		return
	}
	q, err := req.ToListQuery()
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.schedules.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ScheduleListFromPage(page)))
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	var req httpdto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	v, err := h.schedules.Update(c.Request.Context(), actor, commands.UpdateScheduleCommand{
		ScheduleUUID:      id,
		ExpectedUpdatedAt: *req.UpdatedAt,
		Patch:             req.Patch(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ScheduleFromView(v)))
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	if err := h.schedules.Delete(c.Request.Context(), actor, commands.DeleteScheduleCommand{ScheduleUUID: id}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) History(c *gin.Context) {
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	items, err := h.schedules.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]httpdto.HistoryDTO, 0, len(items))
	for _, item := range items {
		out = append(out, httpdto.HistoryFromRecord(item))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ScheduleHandler) HistoryAt(c *gin.Context) {
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		invalidRequest(c, "invalid version")
		return
	}
	item, err := h.schedules.HistoryAt(c.Request.Context(), id, version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.HistoryFromRecord(item)))
}

func (h *ScheduleHandler) Like(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	count, err := h.likes.Like(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.LikeResponse{IsLiked: true, LikeCount: count}))
}

func (h *ScheduleHandler) Unlike(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	count, err := h.likes.Unlike(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.LikeResponse{IsLiked: false, LikeCount: count}))
}

func (h *ScheduleHandler) IsLiked(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	liked, err := h.likes.IsLiked(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"isLiked": liked}))
}
