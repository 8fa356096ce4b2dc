package handlers

import (
	"fmt"
	"net/http"
	"time"
	"uolink/internal/db"
	"uolink/internal/middleware"
	"uolink/internal/models"
	"uolink/internal/services"
	"uolink/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const pageSize = 30

type ItemHandler struct {
	deletion *services.DeletionService
	trending *services.TrendingService
}

func NewItemHandler(deletion *services.DeletionService, trending *services.TrendingService) *ItemHandler {
	return &ItemHandler{deletion: deletion, trending: trending}
}

type createItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	BlobKey     string `json:"blob_key"` // 上传流程（引擎之外）给出的对象 key
}

// Create 登记一个已上传文档的元数据
func (h *ItemHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, services.NewError(services.CodeValidation, "title is required"))
		return
	}

	item := models.Item{
		Pid:               uuid.NewString(),
		OwnerID:           user.ID,
		Title:             req.Title,
		Description:       req.Description,
		Subject:           req.Subject,
		BlobKey:           req.BlobKey,
		LastInteractionAt: time.Now(),
	}
	if err := db.DB.Create(&item).Error; err != nil {
		Fail(c, err)
		return
	}

	utils.GetCache().InvalidateTag(services.TagItemLists)
	if h.trending != nil {
		h.trending.Schedule(item.ID)
	}
	c.JSON(http.StatusCreated, item)
}

// Get 条目详情，短 TTL 缓存
func (h *ItemHandler) Get(c *gin.Context) {
	pid := c.Param("pid")
	cacheKey := "item:detail:" + pid

	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	var item models.Item
	if err := db.DB.Where("pid = ?", pid).First(&item).Error; err != nil {
		Fail(c, services.NewError(services.CodeNotFound, "item not found"))
		return
	}

	var commentCount int64
	db.DB.Model(&models.Comment{}).Where("item_id = ?", item.ID).Count(&commentCount)
	item.CommentCount = int(commentCount)

	payload := gin.H{
		"item": item,
		"tier": utils.Tier(item.CredibilityScore),
	}
	utils.GetCache().Set(cacheKey, payload, 2*time.Minute, "item:"+pid)
	c.JSON(http.StatusOK, payload)
}

// List 按热度分页列出条目，整页缓存并打上列表 tag
func (h *ItemHandler) List(c *gin.Context) {
	page := utils.StringToInt(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	cacheKey := fmt.Sprintf("items:list:page:%d", page)

	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	var items []models.Item
	if err := db.DB.Order("trending_score DESC, created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		Fail(c, err)
		return
	}

	payload := gin.H{"items": items, "page": page}
	utils.GetCache().Set(cacheKey, payload, time.Minute, services.TagItemLists)
	c.JSON(http.StatusOK, payload)
}

type patchItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
}

// Patch 更新可编辑的元数据字段，绝不触碰投票/收藏状态
func (h *ItemHandler) Patch(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var item models.Item
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&item).Error; err != nil {
		Fail(c, services.NewError(services.CodeNotFound, "item not found"))
		return
	}
	if item.OwnerID != user.ID && !user.IsAdmin() {
		Fail(c, services.NewError(services.CodeAccessDenied, "only the owner or an admin can edit this item"))
		return
	}

	var req patchItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, services.NewError(services.CodeValidation, "invalid request body"))
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if *req.Title == "" {
			Fail(c, services.NewError(services.CodeValidation, "title cannot be empty"))
			return
		}
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if len(updates) > 0 {
		if err := db.DB.Model(&item).Updates(updates).Error; err != nil {
			Fail(c, err)
			return
		}
	}

	utils.GetCache().Delete("item:detail:" + item.Pid)
	utils.GetCache().InvalidateTag(services.TagItemLists)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete 删除条目及其全部依赖记录
func (h *ItemHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.deletion.DeleteItem(c.Param("pid"), user); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
