package bus

import (
	"context"
	"errors"
	"reflect"

	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// ErrNilEvent 发布了 nil 事件
var ErrNilEvent = errors.New("bus: event is nil")

// IsNilEvent evt 为 nil 接口或 nil 指针
func IsNilEvent(evt domain.IDomainEvent) bool {
	if evt == nil {
		return true
	}
	v := reflect.ValueOf(evt)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// IPublisher 事件发布方依赖的最小接口
type IPublisher interface {
	Publish(ctx context.Context, evt domain.IDomainEvent) error
	PublishAll(ctx context.Context, events ...domain.IDomainEvent) error
}

type compiled struct {
	info HandlerInfo
	call Next
}

type dispatchRoute struct {
	policy   Policy
	handlers []compiled
}

// Dispatcher 只读的事件分发器，可被多个 goroutine 并发使用。
type Dispatcher struct {
	routes  map[reflect.Type]dispatchRoute
	logger  logging.Logger
	metrics *monitoring.Metrics
}

var _ IPublisher = (*Dispatcher)(nil)

// Publish 在调用方 goroutine 上按登记顺序同步执行 evt 运行时类型的全部处理器。
//
// 没有处理器时返回 nil。处理器的 panic 不做恢复。
// ctx 原样传给每个处理器；分发器本身不会在处理器之间检查取消。
func (d *Dispatcher) Publish(ctx context.Context, evt domain.IDomainEvent) error {
	if IsNilEvent(evt) {
		return ErrNilEvent
	}
	d.metrics.IncEventPublished(evt.EventType())

	rt, ok := d.routes[reflect.TypeOf(evt)]
	if !ok {
		return nil
	}

	var errs []error
	for _, h := range rt.handlers {
		err := h.call(ctx, evt)
		if err == nil {
			continue
		}
		if h.info.Mode == BestEffort {
			d.logger.Warn(ctx, "best-effort handler failed",
				logging.String("event_type", evt.EventType()),
				logging.String("handler", h.info.Name),
				logging.Error(err))
			continue
		}
		if rt.policy == AbortOnFailure {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PublishAll 依次发布，遇到第一个错误即停止并返回
func (d *Dispatcher) PublishAll(ctx context.Context, events ...domain.IDomainEvent) error {
	for _, evt := range events {
		if err := d.Publish(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Handlers 返回事件 evt 运行时类型的处理器描述（按执行顺序）
func (d *Dispatcher) Handlers(evt domain.IDomainEvent) []HandlerInfo {
	if evt == nil {
		return nil
	}
	rt := d.routes[reflect.TypeOf(evt)]
	out := make([]HandlerInfo, len(rt.handlers))
	for i, h := range rt.handlers {
		out[i] = h.info
	}
	return out
}

// Policy 返回事件 evt 运行时类型的失败策略
func (d *Dispatcher) Policy(evt domain.IDomainEvent) Policy {
	if evt == nil {
		return AbortOnFailure
	}
	return d.routes[reflect.TypeOf(evt)].policy
}
