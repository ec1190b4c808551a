package apperr

import (
	"errors"
	"net/http"
)

// 业务错误码
const (
	CodeValidation     = 40001 // 请求参数错误
	CodeNotFound       = 40401 // 资源不存在
	CodeRateLimited    = 42901 // 请求过于频繁
	CodeProcessing     = 50001 // 处理流程异常
	CodeLLMUnavailable = 50301 // LLM 服务不可用
	CodeLLMRateLimited = 50302 // LLM 限流
	CodeLLMTimeout     = 50401 // LLM 响应超时
)

// AppError 携带 HTTP 状态码的业务错误
// LLM 相关错误自带用户可见的提示文案和可重试标记，
// 编排层原样透传到 HTTP 边界，其他错误统一包装为 Processing
type AppError struct {
	Status    int    // HTTP 状态码
	Code      int    // 业务错误码
	Message   string // 用户可见消息
	Retryable bool   // 瞬时错误，客户端可重试
	cause     error
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.cause
}

// New 创建业务错误
func New(status, code int, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Validation 参数校验错误
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message)
}

// NotFound 资源不存在
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// RateLimited 请求限流
func RateLimited() *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited,
		"Too many requests. Please wait a moment.")
}

// Processing 未预期的处理流程异常，包装底层错误避免细节泄露
func Processing(cause error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeProcessing,
		Message: "Failed to process your message. Please try again.",
		cause:   cause,
	}
}

// LLMRateLimited LLM 侧限流（429），可重试
func LLMRateLimited() *AppError {
	return &AppError{
		Status:    http.StatusServiceUnavailable,
		Code:      CodeLLMRateLimited,
		Message:   "The agent is currently busy. Please try again in a moment.",
		Retryable: true,
	}
}

// LLMUnavailable LLM 服务不可用（503 或其他失败），可重试
func LLMUnavailable(cause error) *AppError {
	return &AppError{
		Status:    http.StatusServiceUnavailable,
		Code:      CodeLLMUnavailable,
		Message:   "The agent is temporarily unavailable. Please try again shortly.",
		Retryable: true,
		cause:     cause,
	}
}

// LLMTimeout LLM 响应超时，可重试
func LLMTimeout() *AppError {
	return &AppError{
		Status:    http.StatusGatewayTimeout,
		Code:      CodeLLMTimeout,
		Message:   "The response took too long. Please try again with a shorter message.",
		Retryable: true,
	}
}

// From 提取 *AppError；非 AppError 统一包装为 Processing
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Processing(err)
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}
