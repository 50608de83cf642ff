package repo

import (
	"context"
	"fmt"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/domain/repository"
)

var comparisonOps = map[repository.Operator]string{
	repository.OpEq:  "=",
	repository.OpNe:  "<>",
	repository.OpGt:  ">",
	repository.OpGte: ">=",
	repository.OpLt:  "<",
	repository.OpLte: "<=",
}

// filtered 构造带状态与过滤条件的查询。
//
// 字段名必须出现在实体的 schema 中（列名或 Go 字段名），否则返回 ErrInvalidFilter；
// 只有白名单列名会被拼入 SQL，取值一律走占位符。
func (r *Repo[T, ID]) filtered(ctx context.Context, f repository.Filter, lo repository.ListOptions) (scope, error) {
	opts, err := r.filterOptions(f)
	if err != nil {
		return scope{}, err
	}
	q := r.scope(ctx)
	if !lo.AnyState {
		q = q.and(orm.Where(r.stateColumn+" = ?", lo.State.Code()))
	}
	return q.and(opts...), nil
}

func (r *Repo[T, ID]) filterOptions(f repository.Filter) ([]orm.QueryOption, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	opts := make([]orm.QueryOption, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		col, ok := r.model.Column(c.Field)
		if !ok {
			return nil, domain.NewInvalidFilterError("unknown field %q on %s", c.Field, r.model.Table())
		}
		value := c.Value
		if s, ok := value.(domain.State); ok {
			value = s.Code()
		}
		switch c.Op {
		case repository.OpLike:
			opts = append(opts, orm.Where(col.Name+" LIKE ?", fmt.Sprintf("%%%v%%", value)))
		case repository.OpIn:
			in, _ := repository.InValues(value)
			values := make([]any, len(in))
			for i, v := range in {
				if s, ok := v.(domain.State); ok {
					v = s.Code()
				}
				values[i] = v
			}
			opts = append(opts, orm.In(col.Name, values...))
		default:
			opts = append(opts, orm.Where(col.Name+" "+comparisonOps[c.Op]+" ?", value))
		}
	}
	return opts, nil
}

// orderColumn 只接受 schema 中的列，未指定或未知时按主键排序。
func (r *Repo[T, ID]) orderColumn(field string) (string, error) {
	if field == "" {
		return r.keyColumn, nil
	}
	col, ok := r.model.Column(field)
	if !ok {
		return "", domain.NewInvalidFilterError("unknown order field %q on %s", field, r.model.Table())
	}
	return col.Name, nil
}
