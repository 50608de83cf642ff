package errors

import (
	"context"
	"fmt"
	"runtime"

	"github.com/tbarracha/Spirekit-sub001/logging"
)

// WrapWithLog 包装并立即以 Warn 记录，附带错误代码与调用位置。
// 用于没有上层继续处理的失败，例如启动阶段。logger 为 nil 时使用全局 logger。
func WrapWithLog(ctx context.Context, logger logging.Logger, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	wrapped := WrapError(err, code, msg)
	_, file, line, _ := runtime.Caller(1)
	logger.Warn(ctx, msg, append(fields,
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)))...)
	return wrapped
}
