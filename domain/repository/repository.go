// Package repository 定义实体生命周期仓储的统一契约。
//
// 所有持久化实体共享同一套语义：
//   - 读操作不修改状态；未找到以 found=false 表示，而非错误；
//   - 写操作每次只影响目标行（批量时每个元素一行），并刷新 UpdatedAt；
//   - 删除一律为软删除（状态位置为 Deleted），从不执行物理 DELETE；
//   - 状态迁移只能经由仓储操作完成。
package repository

import (
	"context"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

// IReadRepository 只读部分。
type IReadRepository[T domain.IEntity[ID], ID comparable] interface {
	// GetByID 按主键读取，不区分状态。记录不存在时返回 found=false。
	GetByID(ctx context.Context, id ID) (entity T, found bool, err error)

	// List 按状态过滤列出实体，默认只返回 Active。
	List(ctx context.Context, opts ...ListOption) ([]T, error)

	// ListFiltered 与 List 相同，并与调用方提供的过滤条件取 AND。
	// 过滤条件引用未配置的字段时返回 ErrInvalidFilter。
	ListFiltered(ctx context.Context, filter Filter, opts ...ListOption) ([]T, error)

	// ListPage 分页查询（过滤 + 状态 + 排序）。
	ListPage(ctx context.Context, req PageRequest) (*PageResult[T], error)

	// Count 按与 List 相同的状态语义计数。
	Count(ctx context.Context, opts ...ListOption) (int64, error)
}

// IWriteRepository 写入部分。
type IWriteRepository[T domain.IEntity[ID], ID comparable] interface {
	// Add 新增实体：CreatedAt 未设置时取当前时间，UpdatedAt = CreatedAt，状态置为 Active。
	// 主键重复时返回 ErrEntityAlreadyExists。
	Add(ctx context.Context, entity T) (T, error)

	// AddRange 批量新增，全部成功或全部失败。
	AddRange(ctx context.Context, entities []T) ([]T, error)

	// Update 持久化实体字段并刷新 UpdatedAt，状态位保持库中原值。
	//
	// 失败情形：
	//   - 目标不存在：ErrEntityNotFound
	//   - 库中 UpdatedAt 与调用方读到的值不一致：ErrConcurrencyConflict
	//   - 目标已删除：ErrInvalidTransition
	Update(ctx context.Context, entity T) (T, error)

	// UpdateRange 批量更新，任一元素失败则整体回滚。
	UpdateRange(ctx context.Context, entities []T) error

	// Transition 显式执行生命周期迁移（例如 Active → Inactive）。
	Transition(ctx context.Context, id ID, to domain.State) (T, error)

	// Delete 软删除：状态置为 Deleted 并刷新 UpdatedAt，返回更新后的实体。
	Delete(ctx context.Context, entity T) (T, error)

	// SoftDeleteByID 按主键软删除，记录不存在时返回 found=false。
	SoftDeleteByID(ctx context.Context, id ID) (entity T, found bool, err error)

	// DeleteRange 批量软删除，全部成功或全部失败。
	DeleteRange(ctx context.Context, entities []T) error
}

// IRepository 实体生命周期仓储。
type IRepository[T domain.IEntity[ID], ID comparable] interface {
	IReadRepository[T, ID]
	IWriteRepository[T, ID]
}
