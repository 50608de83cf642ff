package bus

import (
	"context"
	"time"

	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// Next 中间件链中的下一个执行单元
type Next func(ctx context.Context, evt domain.IDomainEvent) error

// IMiddleware 包裹每一次处理器调用。
//
// 实现必须原样返回 next 的错误，不得替换或吞掉。
type IMiddleware interface {
	Name() string
	Handle(ctx context.Context, evt domain.IDomainEvent, info HandlerInfo, next Next) error
}

// chain 构建中间件链，先注册的位于最外层
func chain(middlewares []IMiddleware, info HandlerInfo, final Next) Next {
	next := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		inner := next
		next = func(ctx context.Context, evt domain.IDomainEvent) error {
			return mw.Handle(ctx, evt, info, inner)
		}
	}
	return next
}

// LoggingMiddleware 记录处理器执行结果
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware logger 为 nil 时使用全局 Logger
func NewLoggingMiddleware(logger logging.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logging.ComponentLogger(logger, "eventing.bus")}
}

func (m *LoggingMiddleware) Name() string { return "Logging" }

func (m *LoggingMiddleware) Handle(ctx context.Context, evt domain.IDomainEvent, info HandlerInfo, next Next) error {
	start := time.Now()
	err := next(ctx, evt)
	fields := []logging.Field{
		logging.String("event_type", evt.EventType()),
		logging.String("handler", info.Name),
		logging.Duration("duration", time.Since(start)),
	}
	switch {
	case err == nil:
		m.logger.Debug(ctx, "event handled", fields...)
	case info.Mode == BestEffort:
		m.logger.Debug(ctx, "best-effort handler failed", append(fields, logging.Error(err))...)
	default:
		m.logger.Error(ctx, "event handler failed", append(fields, logging.Error(err))...)
	}
	return err
}

// MetricsMiddleware 记录处理器调用次数、结果与耗时
type MetricsMiddleware struct {
	metrics *monitoring.Metrics
}

func NewMetricsMiddleware(m *monitoring.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

func (m *MetricsMiddleware) Name() string { return "Metrics" }

func (m *MetricsMiddleware) Handle(ctx context.Context, evt domain.IDomainEvent, info HandlerInfo, next Next) error {
	start := time.Now()
	err := next(ctx, evt)
	outcome := monitoring.Outcome(err)
	if err != nil && info.Mode == BestEffort {
		outcome = monitoring.OutcomeIgnored
	}
	m.metrics.ObserveHandler(evt.EventType(), info.Name, outcome, time.Since(start))
	return err
}
