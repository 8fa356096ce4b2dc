package handlers

import (
	"net/http"
	"time"
	"uolink/internal/db"
	"uolink/internal/middleware"
	"uolink/internal/models"
	"uolink/internal/services"
	"uolink/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	trending *services.TrendingService
}

func NewCommentHandler(trending *services.TrendingService) *CommentHandler {
	return &CommentHandler{trending: trending}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *uint  `json:"parent_id"` // 顶层评论为空，回复指向顶层评论
}

// Create 创建评论或回复，最多两层
func (h *CommentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, services.NewError(services.CodeValidation, "content is required"))
		return
	}

	var item models.Item
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&item).Error; err != nil {
		Fail(c, services.NewError(services.CodeNotFound, "item not found"))
		return
	}

	if req.ParentID != nil {
		// 只能回复本条目下的顶层评论，禁止更深的嵌套
		var parent models.Comment
		if err := db.DB.First(&parent, *req.ParentID).Error; err != nil {
			Fail(c, services.NewError(services.CodeNotFound, "parent comment not found"))
			return
		}
		if parent.ItemID != item.ID {
			Fail(c, services.NewError(services.CodeValidation, "parent comment belongs to another item"))
			return
		}
		if parent.ParentID != nil {
			Fail(c, services.NewError(services.CodeValidation, "replies can only target top-level comments"))
			return
		}
	}

	comment := models.Comment{
		ItemID:   item.ID,
		UserID:   user.ID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		Fail(c, err)
		return
	}

	// 评论算一次互动，热度跟着走
	db.DB.Model(&models.Item{}).Where("id = ?", item.ID).
		UpdateColumn("last_interaction_at", time.Now())
	if h.trending != nil {
		h.trending.Schedule(item.ID)
	}
	utils.GetCache().Delete("item:detail:" + item.Pid)

	c.JSON(http.StatusCreated, comment)
}

// ListByItem 返回条目下的评论树（两层）
func (h *CommentHandler) ListByItem(c *gin.Context) {
	var item models.Item
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&item).Error; err != nil {
		Fail(c, services.NewError(services.CodeNotFound, "item not found"))
		return
	}

	var comments []models.Comment
	if err := db.DB.Where("item_id = ?", item.ID).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
