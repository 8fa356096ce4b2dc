package handlers

import (
	"net/http"
	"uolink/internal/db"
	"uolink/internal/middleware"
	"uolink/internal/models"
	"uolink/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type castVoteRequest struct {
	VoteType string `json:"vote_type" binding:"required"`
}

// Cast 处理投票请求，返回权威计票结果
func (h *VoteHandler) Cast(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, services.NewError(services.CodeValidation, "vote_type is required"))
		return
	}

	result, err := h.votes.CastVote(c.Param("pid"), user.ID, req.VoteType)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Report 处理举报逻辑
func (h *VoteHandler) Report(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, services.NewError(services.CodeValidation, "reason is required"))
		return
	}

	var item models.Item
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&item).Error; err != nil {
		Fail(c, services.NewError(services.CodeNotFound, "item not found"))
		return
	}

	report := models.Report{
		UserID:  user.ID,
		ItemID:  item.ID,
		ItemPid: item.Pid,
		Reason:  req.Reason,
	}
	if err := db.DB.Create(&report).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
