package handlers

import (
	"errors"
	"log"
	"uolink/internal/services"

	"github.com/gin-gonic/gin"
)

// Fail 把引擎错误统一翻译成 {error, message} JSON 响应
func Fail(c *gin.Context, err error) {
	code := services.CodeOf(err)
	message := "internal error"
	var ee *services.EngineError
	if errors.As(err, &ee) {
		message = ee.Message
	} else {
		// 非引擎错误不外泄细节
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(services.HTTPStatus(code), gin.H{
		"error":   code,
		"message": message,
	})
}
