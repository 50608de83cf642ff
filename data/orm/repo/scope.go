package repo

import (
	"context"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

// scope 绑定 ctx 与模型的一次查询。按值传递，派生出的 scope 不影响原值，
// 同一组过滤条件可以先计数再取页。
type scope struct {
	ctx   context.Context
	model orm.IModel
	opts  []orm.QueryOption
}

func newScope(ctx context.Context, model orm.IModel) scope {
	return scope{ctx: ctx, model: model}
}

func (s scope) and(opts ...orm.QueryOption) scope {
	s.opts = append(s.opts[:len(s.opts):len(s.opts)], opts...)
	return s
}

func (s scope) byKey(column string, id any) scope {
	return s.and(orm.Where(column+" = ?", id))
}

func (s scope) first(dest any) error  { return s.model.First(s.ctx, dest, s.opts...) }
func (s scope) find(dest any) error   { return s.model.Find(s.ctx, dest, s.opts...) }
func (s scope) count() (int64, error) { return s.model.Count(s.ctx, s.opts...) }

func (s scope) save(entity any) (int64, error) {
	return s.model.Save(s.ctx, entity, s.opts...)
}

func (s scope) set(values map[string]any) (int64, error) {
	return s.model.UpdateValues(s.ctx, values, s.opts...)
}
