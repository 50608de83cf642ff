package repo

import (
	"context"
	ers "errors"
	"time"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/domain/repository"
)

// GetByID 按主键读取，不区分状态；记录不存在时 found=false。
func (r *Repo[T, ID]) GetByID(ctx context.Context, id ID) (entity T, found bool, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "get", start, err) }()

	e := r.newEntity()
	if err = r.scope(ctx).byKey(r.keyColumn, id).first(e); err != nil {
		var zero T
		if ers.Is(err, orm.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, dbError(err, "failed to query record")
	}
	return e, true, nil
}

// List 列出实体，默认只返回 Active，按主键升序。
func (r *Repo[T, ID]) List(ctx context.Context, opts ...repository.ListOption) ([]T, error) {
	return r.ListFiltered(ctx, repository.Filter{}, opts...)
}

// ListFiltered 状态条件与调用方过滤条件取 AND。
func (r *Repo[T, ID]) ListFiltered(ctx context.Context, filter repository.Filter, opts ...repository.ListOption) (out []T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "list", start, err) }()

	q, err := r.filtered(ctx, filter, repository.CollectListOptions(opts...))
	if err != nil {
		return nil, err
	}
	if err = q.and(orm.OrderBy(r.keyColumn, false)).find(&out); err != nil {
		return nil, dbError(err, "failed to list records")
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Count 按与 List 相同的状态语义计数。
func (r *Repo[T, ID]) Count(ctx context.Context, opts ...repository.ListOption) (n int64, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "count", start, err) }()

	q, err := r.filtered(ctx, repository.Filter{}, repository.CollectListOptions(opts...))
	if err != nil {
		return 0, err
	}
	if n, err = q.count(); err != nil {
		return 0, dbError(err, "failed to count records")
	}
	return n, nil
}

// Exists 主键是否存在（不区分状态）。
func (r *Repo[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	n, err := r.scope(ctx).byKey(r.keyColumn, id).count()
	if err != nil {
		return false, dbError(err, "failed to check record existence")
	}
	return n > 0, nil
}
