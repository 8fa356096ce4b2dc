package middleware

import (
	"net/http"
	"strings"
	"uolink/internal/db"
	"uolink/internal/models"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser 解析 Authorization: Bearer <token> 并把用户放进请求上下文
// token 由外部身份提供方签发，这里只做查找，不做签发与校验逻辑
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			var user models.User
			if err := db.DB.Where("api_token = ?", token).First(&user).Error; err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// AuthRequired 保护需要调用者身份的路由
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "NOT_AUTHENTICATED",
				"message": "bearer token required",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文取已加载的用户，未认证时返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(CheckUserKey); exists {
		return user.(*models.User)
	}
	return nil
}
