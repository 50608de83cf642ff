// Package errors 给错误附加稳定的错误代码，供外层（HTTP、CLI、日志）按代码翻译。
package errors

import (
	stdErrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeConcurrency  ErrorCode = "CONCURRENCY_ERROR"

	// ErrCodeConfiguration 启动期：实体配置、模块、处理器登记
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeDatabase      ErrorCode = "DATABASE_ERROR"
	// ErrCodeQueue 外部消息系统（Redis、NATS）
	ErrCodeQueue ErrorCode = "QUEUE_ERROR"
)

// IError 带代码的错误
type IError interface {
	error
	Code() ErrorCode
	Message() string
	Cause() error
	// Details 返回副本
	Details() map[string]any
	// Stack 创建位置的调用栈，每帧一行
	Stack() string
	// WithContext 返回附加一条详情的新错误，原错误不变
	WithContext(key string, value any) IError
}

// AppError IError 的实现，创建后不可变
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	pcs     []uintptr
}

func newAppError(code ErrorCode, message string, cause error) *AppError {
	var pcs [32]uintptr
	// 跳过 runtime.Callers、newAppError 与导出的构造函数
	n := runtime.Callers(3, pcs[:])
	return &AppError{code: code, message: message, cause: cause, pcs: pcs[:n:n]}
}

func NewError(code ErrorCode, message string) IError {
	return newAppError(code, message, nil)
}

// WrapError err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, err)
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return "[" + string(e.code) + "] " + e.message
	}
	return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
}

func (e *AppError) Code() ErrorCode         { return e.code }
func (e *AppError) Message() string         { return e.message }
func (e *AppError) Cause() error            { return e.cause }
func (e *AppError) Unwrap() error           { return e.cause }
func (e *AppError) Details() map[string]any { return cloneDetails(e.details) }

// Is 代码相同即匹配，cause 链由 Unwrap 继续比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.code == e.code
}

func (e *AppError) WithContext(key string, value any) IError {
	cp := *e
	cp.details = cloneDetails(e.details)
	cp.details[key] = value
	return &cp
}

func (e *AppError) Stack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		f, more := frames.Next()
		if f.Function != "" {
			fmt.Fprintf(&sb, "%s:%d %s\n", f.File, f.Line, f.Function)
		}
		if !more {
			return sb.String()
		}
	}
}

func cloneDetails(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

// 哨兵错误，errors.Is 按代码比较
var (
	ErrInternal      = NewError(ErrCodeInternal, "internal error")
	ErrInvalidInput  = NewError(ErrCodeInvalidInput, "invalid input")
	ErrNotFound      = NewError(ErrCodeNotFound, "resource not found")
	ErrConflict      = NewError(ErrCodeConflict, "resource conflict")
	ErrValidation    = NewError(ErrCodeValidation, "validation failed")
	ErrConcurrency   = NewError(ErrCodeConcurrency, "concurrent modification")
	ErrConfiguration = NewError(ErrCodeConfiguration, "invalid configuration")
	ErrDatabase      = NewError(ErrCodeDatabase, "database error")
)

// GetErrorCode 错误链上最外层 AppError 的代码；nil 返回空串，没有 AppError 时为 ErrCodeInternal
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *AppError
	if !stdErrors.As(err, &e) {
		return ErrCodeInternal
	}
	return e.code
}

func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}

func IsNotFound(err error) bool   { return IsErrorCode(err, ErrCodeNotFound) }
func IsValidation(err error) bool { return IsErrorCode(err, ErrCodeValidation) }
func IsConflict(err error) bool   { return IsErrorCode(err, ErrCodeConflict) }
