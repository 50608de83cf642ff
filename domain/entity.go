package domain

import "time"

// IObject 最基础的对象接口，所有实体的根接口。
type IObject[T comparable] interface {
	// GetID 返回对象的唯一标识
	GetID() T
}

// IEntity 持久化实体接口，在 IObject 基础上暴露统一的生命周期字段。
//
// UpdatedAt 同时承担乐观锁的职责：仓储在写入前比较调用方读到的
// UpdatedAt 与库中当前值，不一致即视为并发冲突。
type IEntity[T comparable] interface {
	IObject[T]

	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
	GetState() State
}

// ILifecycle 生命周期写入接口。
//
// 仅供仓储实现调用；业务代码不应直接修改状态位，状态迁移必须经过仓储操作。
type ILifecycle interface {
	SetCreatedAt(at time.Time)
	SetUpdatedAt(at time.Time)
	SetState(s State)
}

// IAuditable 审计人信息接口（可选能力）。
type IAuditable interface {
	GetCreatedBy() *string
	GetUpdatedBy() *string
	SetCreatedBy(by *string)
	SetUpdatedBy(by *string)
}

// IValidatable 可验证接口。
// 实现此接口的实体在每次写入前都会被校验。
type IValidatable interface {
	// Validate 验证实体状态是否有效
	// 返回 error 表示验证失败，nil 表示验证成功
	Validate() error
}

// IDomainEvent 领域事件接口。
// 领域层仅关注事件本身的语义，不关心传输信封与存储细节。
type IDomainEvent interface {
	// EventType 返回领域事件类型标识。
	// 仅用于日志、指标与外部转发路由；分发时按事件的 Go 运行时类型精确匹配。
	EventType() string
}
