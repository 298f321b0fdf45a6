// Package apperr 定义带错误码的结构化错误。
//
// 错误码分三类：
//   - 配置类 (INVALID_CONFIG / DEGENERATE_GRID / NO_ITEMS / INVALID_TEMPLATE)：在第一页之前失败
//   - 单项类 (ASSET_NOT_FOUND / ASSET_DECODE / RENDER_FAILED)：只影响一个卡片，记录日志后继续
//   - 输出类 (NO_PAGES / SINK_FAILED)：致命，进程以非零码退出
//
// 用法：
//
//	err := apperr.New(apperr.CodeInvalidConfig, "dpi 必须为正数：%g", dpi)
//	if apperr.Is(err, apperr.CodeInvalidConfig) {
//	    // ...
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidConfig   Code = "INVALID_CONFIG"
	CodeDegenerateGrid  Code = "DEGENERATE_GRID"
	CodeNoItems         Code = "NO_ITEMS"
	CodeInvalidTemplate Code = "INVALID_TEMPLATE"

	CodeAssetNotFound Code = "ASSET_NOT_FOUND"
	CodeAssetDecode   Code = "ASSET_DECODE"
	CodeRenderFailed  Code = "RENDER_FAILED"

	CodeNoPages    Code = "NO_PAGES"
	CodeSinkFailed Code = "SINK_FAILED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the outermost error code, or "" for plain errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Recoverable reports whether err only affects a single item.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case CodeAssetNotFound, CodeAssetDecode, CodeRenderFailed:
		return true
	}
	return false
}

// UserMessage 返回面向用户的消息：不带错误码前缀，但保留底层原因。
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
