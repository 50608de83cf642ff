package repo

import (
	"context"
	"time"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/domain/repository"
)

// ListPage 分页查询：先按相同条件计数，再取当前页。
func (r *Repo[T, ID]) ListPage(ctx context.Context, req repository.PageRequest) (page *repository.PageResult[T], err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "list_page", start, err) }()

	req = req.Normalize()
	order, err := r.orderColumn(req.OrderBy)
	if err != nil {
		return nil, err
	}
	lo := repository.CollectListOptions(req.Options...)

	q, err := r.filtered(ctx, req.Filter, lo)
	if err != nil {
		return nil, err
	}
	total, err := q.count()
	if err != nil {
		return nil, dbError(err, "failed to count total records")
	}

	// 排序列有重复值时以主键兜底，翻页结果稳定
	q = q.and(orm.OrderBy(order, req.Desc), orm.Page(req.Size, req.Offset()))
	if order != r.keyColumn {
		q = q.and(orm.OrderBy(r.keyColumn, false))
	}
	var items []T
	if err = q.find(&items); err != nil {
		return nil, dbError(err, "failed to execute paginated query")
	}
	return repository.NewPageResult(items, total, req), nil
}
