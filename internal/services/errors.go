package services

import (
	"errors"
	"fmt"
	"net/http"
)

// 引擎错误码，handler 层据此映射 HTTP 状态
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeContention       = "CONTENTION"               // 可重试的事务冲突，内部消化
	CodeStorageCleanup   = "STORAGE_CLEANUP_FAILURE" // 非致命，仅记录
	CodeInternal         = "INTERNAL_ERROR"
)

// EngineError 带错误码的引擎错误
type EngineError struct {
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewError(code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

func WrapError(code, message string, err error) *EngineError {
	return &EngineError{Code: code, Message: message, Err: err}
}

// CodeOf 提取错误码，非引擎错误一律按 INTERNAL_ERROR 处理
func CodeOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeInternal
}

// HTTPStatus 错误码到 HTTP 状态码的映射
func HTTPStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
