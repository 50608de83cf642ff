package domain

import (
	"errors"
	"fmt"
	"time"
)

// 仓储错误代码
const (
	CodeEntityNotFound      = "ENTITY_NOT_FOUND"
	CodeEntityAlreadyExists = "ENTITY_ALREADY_EXISTS"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInvalidFilter       = "INVALID_FILTER"
)

// RepositoryError 通用仓储错误。
//
// 同一 Code 的错误在 errors.Is 下视为相等，因此既可以与哨兵比较，
// 也可以通过 errors.As 取出 EntityID 等上下文。
type RepositoryError struct {
	Code     string
	Message  string
	EntityID any
	Cause    error
}

func (e *RepositoryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityID != nil {
		msg = fmt.Sprintf("%s (id=%v)", msg, e.EntityID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

// Is 按错误代码比较。
func (e *RepositoryError) Is(target error) bool {
	var t *RepositoryError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// 常见仓储错误哨兵
var (
	ErrEntityNotFound      = &RepositoryError{Code: CodeEntityNotFound, Message: "entity not found"}
	ErrEntityAlreadyExists = &RepositoryError{Code: CodeEntityAlreadyExists, Message: "entity already exists"}
	ErrConcurrencyConflict = &RepositoryError{Code: CodeConcurrencyConflict, Message: "entity was modified concurrently (optimistic lock)"}
	ErrInvalidTransition   = &RepositoryError{Code: CodeInvalidTransition, Message: "invalid lifecycle transition"}
	ErrInvalidFilter       = &RepositoryError{Code: CodeInvalidFilter, Message: "invalid filter"}
)

// NewNotFoundError 目标实体不存在（Update / Delete 等写操作）。
func NewNotFoundError(id any) *RepositoryError {
	return &RepositoryError{Code: CodeEntityNotFound, Message: "entity not found", EntityID: id}
}

// NewConflictError 重复主键。
func NewConflictError(id any, cause error) *RepositoryError {
	return &RepositoryError{Code: CodeEntityAlreadyExists, Message: "entity already exists", EntityID: id, Cause: cause}
}

// ConcurrencyConflictError 乐观锁冲突：库中 UpdatedAt 已越过调用方读到的值。
type ConcurrencyConflictError struct {
	EntityID any
	Expected time.Time
	Actual   time.Time
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s: entity %v expected updated_at %s, actual %s",
		CodeConcurrencyConflict, e.EntityID,
		e.Expected.Format(time.RFC3339Nano), e.Actual.Format(time.RFC3339Nano))
}

// Is 与 ErrConcurrencyConflict 哨兵匹配。
func (e *ConcurrencyConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// NewConcurrencyConflictError 创建乐观锁冲突错误。
func NewConcurrencyConflictError(id any, expected, actual time.Time) *ConcurrencyConflictError {
	return &ConcurrencyConflictError{EntityID: id, Expected: expected, Actual: actual}
}

// TransitionError 非法生命周期迁移。
type TransitionError struct {
	EntityID any
	From     State
	To       State
}

func (e *TransitionError) Error() string {
	if e.EntityID != nil {
		return fmt.Sprintf("%s: entity %v cannot move from %s to %s", CodeInvalidTransition, e.EntityID, e.From, e.To)
	}
	return fmt.Sprintf("%s: cannot move from %s to %s", CodeInvalidTransition, e.From, e.To)
}

// Is 与 ErrInvalidTransition 哨兵匹配。
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NewTransitionError 创建非法迁移错误。
func NewTransitionError(id any, from, to State) *TransitionError {
	return &TransitionError{EntityID: id, From: from, To: to}
}

// NewInvalidFilterError 过滤条件引用了未配置的字段或非法操作符。
func NewInvalidFilterError(format string, args ...any) *RepositoryError {
	return &RepositoryError{Code: CodeInvalidFilter, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound 是否为未找到错误
func IsNotFound(err error) bool { return errors.Is(err, ErrEntityNotFound) }

// IsConflict 是否为重复主键错误
func IsConflict(err error) bool { return errors.Is(err, ErrEntityAlreadyExists) }

// IsConcurrencyConflict 是否为乐观锁冲突
func IsConcurrencyConflict(err error) bool { return errors.Is(err, ErrConcurrencyConflict) }

// IsInvalidTransition 是否为非法迁移
func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }
