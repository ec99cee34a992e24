package handler

import (
	"net/http"

	"instoo/internal/commands"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UserFromRecord(u)))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "uuid")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UserFromRecord(u)))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req httpdto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), actor, commands.UpdateProfileCommand{Nickname: req.Nickname})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UserFromRecord(u)))
}
