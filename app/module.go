package app

import (
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/eventing/bus"
	"github.com/tbarracha/Spirekit-sub001/eventing/relay"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// IModule 领域模块的最小契约。
//
// Bootstrap 先对全部模块调用 RegisterEntities 并一次性构建实体配置注册表，
// 再调用 RegisterHandlers 并构建事件分发器。两个阶段都只在启动时执行一次。
type IModule interface {
	// Name 模块名称，用于日志；在同一应用内唯一
	Name() string

	// RegisterEntities 登记该模块的实体配置
	RegisterEntities(reg *schema.Registry)

	// RegisterHandlers 登记该模块的事件处理器
	RegisterHandlers(w *Wiring) error
}

// Wiring 注册处理器时可用的依赖
type Wiring struct {
	Bus    *bus.Registry
	Relays []*relay.Relay
	Logger logging.Logger
}

// BindRelays 把事件类型 E 绑定到全部已启用的外部转发目标
func BindRelays[E domain.IDomainEvent](w *Wiring) {
	for _, r := range w.Relays {
		relay.Bind[E](w.Bus, r)
	}
}
