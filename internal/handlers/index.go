package handlers

import (
	"net/http"
	"uolink/internal/middleware"
	"uolink/internal/services"

	"github.com/gin-gonic/gin"
)

type IndexHandler struct {
	indexes *services.IndexService
}

func NewIndexHandler(indexes *services.IndexService) *IndexHandler {
	return &IndexHandler{indexes: indexes}
}

// Me 返回当前用户反向索引的权威快照
// 客户端先展示本地缓存，再用这份结果整体覆盖（stale-while-revalidate）
func (h *IndexHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Fail(c, services.NewError(services.CodeNotAuthenticated, "bearer token required"))
		return
	}

	idx, err := h.indexes.FetchIndex(user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, idx)
}
