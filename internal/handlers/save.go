package handlers

import (
	"net/http"
	"uolink/internal/middleware"
	"uolink/internal/services"

	"github.com/gin-gonic/gin"
)

type SaveHandler struct {
	votes *services.VoteService
}

func NewSaveHandler(votes *services.VoteService) *SaveHandler {
	return &SaveHandler{votes: votes}
}

// Toggle 切换收藏状态 - 收藏/取消收藏
func (h *SaveHandler) Toggle(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	result, err := h.votes.ToggleSave(c.Param("pid"), user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
