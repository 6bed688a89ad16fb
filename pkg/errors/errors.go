package errors

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/middleware"
	"github.com/haierkeys/artifact-git-sync/pkg/code"

	"github.com/gin-gonic/gin"
)

// AppError 统一应用错误响应
// 与 pkg/app.Res 字段保持一致，额外携带 TraceID 与时间戳
type AppError struct {
	Code       int       `json:"code"`
	Status     bool      `json:"status"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Data       any       `json:"data,omitempty"`
	Repository string    `json:"repository,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:       c.Code(),
		Status:     c.Status(),
		Message:    c.Msg(),
		Details:    strings.Join(c.Details(), ","),
		Data:       c.Data(),
		Repository: c.Repository(),
		Cause:      cause,
		Timestamp:  time.Now(),
	}
}

// ErrorResponse 统一错误响应处理
// *code.Code 原样输出，其他未知错误作为内部错误输出
func ErrorResponse(c *gin.Context, err error) {
	traceID := middleware.GetTraceIDFromGin(c)

	var appErr *AppError
	if errors.As(err, &appErr) {
		appErr.TraceID = traceID
		c.JSON(http.StatusOK, appErr)
		return
	}

	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		resp := NewAppError(codeErr, err)
		resp.TraceID = traceID
		c.JSON(http.StatusOK, resp)
		return
	}

	resp := NewAppError(code.ErrorServerInternal.WithDetails(err.Error()), err)
	resp.TraceID = traceID
	c.JSON(http.StatusOK, resp)
}
