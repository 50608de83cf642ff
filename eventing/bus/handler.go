// Package bus 提供进程内领域事件分发：显式注册表 + 按事件运行时类型精确匹配的同步分发器。
package bus

import (
	"context"
	"reflect"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

// IEventHandler 处理单一事件类型 E 的处理器。
type IEventHandler[E domain.IDomainEvent] interface {
	Handle(ctx context.Context, evt E) error
}

// HandlerFunc 函数式处理器
type HandlerFunc[E domain.IDomainEvent] func(ctx context.Context, evt E) error

func (f HandlerFunc[E]) Handle(ctx context.Context, evt E) error { return f(ctx, evt) }

// Factory 每次分发创建一个处理器实例（处理器可以持有单次调用的状态）。
type Factory[E domain.IDomainEvent] func() IEventHandler[E]

// FailureMode 处理器级失败模式
type FailureMode int

const (
	// Required 失败按事件类型的 Policy 处理（默认）
	Required FailureMode = iota
	// BestEffort 失败只记录日志与指标，不返回给发布方，也不中断后续处理器
	BestEffort
)

func (m FailureMode) String() string {
	if m == BestEffort {
		return "best_effort"
	}
	return "required"
}

// Policy 事件类型级失败策略
type Policy int

const (
	// AbortOnFailure 第一个 Required 处理器失败即原样返回其错误，后续处理器不再执行（默认）
	AbortOnFailure Policy = iota
	// ContinueOnFailure 所有处理器都会执行，失败通过 errors.Join 合并返回
	ContinueOnFailure
)

func (p Policy) String() string {
	if p == ContinueOnFailure {
		return "continue_on_failure"
	}
	return "abort_on_failure"
}

// HandlerInfo 处理器描述，传给中间件
type HandlerInfo struct {
	Name      string
	EventType reflect.Type
	Mode      FailureMode
}

// HandlerOption 注册处理器时的选项
type HandlerOption func(*HandlerInfo)

// WithBestEffort 将处理器标记为尽力而为
func WithBestEffort() HandlerOption {
	return func(info *HandlerInfo) { info.Mode = BestEffort }
}

// WithRequired 显式标记为必需（默认即为 Required）
func WithRequired() HandlerOption {
	return func(info *HandlerInfo) { info.Mode = Required }
}
