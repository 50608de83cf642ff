package errors

import (
	"context"
	stdErrors "errors"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain"
)

// Normalize 将领域层/基础设施层的错误规范化为 AppError。
//
// 原始错误保留为 cause，errors.Is / errors.As 仍可取到领域错误类型。
// 已经是 IError 的错误原样返回；未识别的错误同样原样返回，GetErrorCode 对其给出 ErrCodeInternal。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var appErr IError
	if stdErrors.As(err, &appErr) {
		return err
	}

	var cfgErr *schema.ConfigurationError
	switch {
	case stdErrors.As(err, &cfgErr):
		return WrapError(err, ErrCodeConfiguration, "entity configuration failed")
	case domain.IsNotFound(err), stdErrors.Is(err, orm.ErrNotFound):
		return WrapError(err, ErrCodeNotFound, "entity not found")
	case domain.IsConflict(err), stdErrors.Is(err, orm.ErrDuplicateKey):
		return WrapError(err, ErrCodeConflict, "entity already exists")
	case domain.IsConcurrencyConflict(err):
		return WrapError(err, ErrCodeConcurrency, "entity was modified concurrently")
	case domain.IsInvalidTransition(err):
		return WrapError(err, ErrCodeInvalidInput, "invalid lifecycle transition")
	case stdErrors.Is(err, domain.ErrInvalidFilter):
		return WrapError(err, ErrCodeValidation, "invalid filter")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrCodeTimeout, "operation timed out")
	}

	// 未识别的错误保持原样
	return err
}
