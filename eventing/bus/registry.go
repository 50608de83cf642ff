package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// ErrRegistryBuilt 注册表已构建，不再接受注册
var ErrRegistryBuilt = errors.New("bus: registry already built")

// binding 类型擦除后的处理器登记项
type binding struct {
	info   HandlerInfo
	invoke func(ctx context.Context, evt domain.IDomainEvent) error
}

type route struct {
	policy   Policy
	bindings []binding
}

// Registry 处理器注册表。启动阶段登记，Build 后冻结为只读的 Dispatcher。
type Registry struct {
	mu          sync.Mutex
	routes      map[reflect.Type]*route
	order       []reflect.Type
	names       map[string]struct{}
	middlewares []IMiddleware
	errs        []error
	built       bool

	logger  logging.Logger
	metrics *monitoring.Metrics
}

// Option 注册表配置项
type Option func(*Registry)

// WithLogger 设置分发器日志
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics 设置分发器指标（事件发布计数）
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry 创建空注册表
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		routes: make(map[reflect.Type]*route),
		names:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = logging.ComponentLogger(r.logger, "eventing.bus")
	return r
}

// Register 为事件类型 E 登记处理器工厂。
//
// E 必须是具体类型（结构体或其指针），分发时按运行时类型精确匹配。
// 同一事件类型的处理器按登记顺序执行；处理器名称在整个注册表内唯一。
// 错误延迟到 Build 统一返回；Build 之后调用会 panic。
func Register[E domain.IDomainEvent](r *Registry, name string, factory Factory[E], opts ...HandlerOption) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	info := HandlerInfo{Name: name, EventType: t, Mode: Required}
	for _, opt := range opts {
		if opt != nil {
			opt(&info)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		panic(fmt.Errorf("%w: cannot register handler %q", ErrRegistryBuilt, name))
	}
	switch {
	case t.Kind() == reflect.Interface:
		r.errs = append(r.errs, fmt.Errorf("handler %q: event type %s must be a concrete type", name, t))
		return
	case name == "":
		r.errs = append(r.errs, fmt.Errorf("handler for %s: name is required", t))
		return
	case factory == nil:
		r.errs = append(r.errs, fmt.Errorf("handler %q: factory is nil", name))
		return
	}
	if _, dup := r.names[name]; dup {
		r.errs = append(r.errs, fmt.Errorf("handler %q registered more than once", name))
		return
	}
	r.names[name] = struct{}{}

	b := binding{
		info: info,
		invoke: func(ctx context.Context, evt domain.IDomainEvent) error {
			h := factory()
			if h == nil {
				return fmt.Errorf("handler %q: factory returned nil", name)
			}
			return h.Handle(ctx, evt.(E))
		},
	}
	rt := r.routeLocked(t)
	rt.bindings = append(rt.bindings, b)
}

// RegisterFunc 以函数登记处理器（无状态处理器的简写）
func RegisterFunc[E domain.IDomainEvent](r *Registry, name string, fn func(ctx context.Context, evt E) error, opts ...HandlerOption) {
	var factory Factory[E]
	if fn != nil {
		h := HandlerFunc[E](fn)
		factory = func() IEventHandler[E] { return h }
	}
	Register[E](r, name, factory, opts...)
}

// SetPolicy 设置事件类型 E 的失败策略（默认 AbortOnFailure）
func SetPolicy[E domain.IDomainEvent](r *Registry, policy Policy) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		panic(fmt.Errorf("%w: cannot set policy for %s", ErrRegistryBuilt, t))
	}
	if policy != AbortOnFailure && policy != ContinueOnFailure {
		r.errs = append(r.errs, fmt.Errorf("event %s: unknown policy %d", t, policy))
		return
	}
	r.routeLocked(t).policy = policy
}

// Use 追加中间件，先追加的位于最外层
func (r *Registry) Use(mw IMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		panic(fmt.Errorf("%w: cannot add middleware", ErrRegistryBuilt))
	}
	if mw == nil {
		r.errs = append(r.errs, errors.New("middleware is nil"))
		return
	}
	r.middlewares = append(r.middlewares, mw)
}

func (r *Registry) routeLocked(t reflect.Type) *route {
	rt, ok := r.routes[t]
	if !ok {
		rt = &route{policy: AbortOnFailure}
		r.routes[t] = rt
		r.order = append(r.order, t)
	}
	return rt
}

// Build 冻结注册表并返回分发器。登记错误会合并返回；构建之后注册表不可再修改。
func (r *Registry) Build() (*Dispatcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = true
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("bus: invalid handler registration: %w", errors.Join(r.errs...))
	}

	d := &Dispatcher{
		routes:  make(map[reflect.Type]dispatchRoute, len(r.routes)),
		logger:  r.logger,
		metrics: r.metrics,
	}
	middlewares := append([]IMiddleware(nil), r.middlewares...)
	for _, t := range r.order {
		rt := r.routes[t]
		dr := dispatchRoute{policy: rt.policy, handlers: make([]compiled, len(rt.bindings))}
		for i, b := range rt.bindings {
			dr.handlers[i] = compiled{info: b.info, call: chain(middlewares, b.info, b.invoke)}
		}
		d.routes[t] = dr
	}
	return d, nil
}
