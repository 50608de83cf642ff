package basic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dbsql "github.com/tbarracha/Spirekit-sub001/data/db/sql"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

type model struct {
	orm   *Orm
	meta  *orm.ModelMeta
	table string
	// declared 来自 ModelMeta 的映射，nil 时按值类型推断
	declared *mapping
}

func (m *model) Meta() *orm.ModelMeta { return m.meta }

// mappingOf 与 declared 类型一致时使用 declared
func (m *model) mappingOf(v any) (*mapping, error) {
	t := structType(v)
	if t == nil {
		return nil, fmt.Errorf("basic: %T is not a struct", v)
	}
	if m.declared != nil && m.declared.typ == t {
		return m.declared, nil
	}
	return m.orm.inferred(t), nil
}

// where 把条件追加到任意带 Where 的构建器上
func where[B interface{ Where(string, ...any) B }](b B, qo orm.QueryOptions) B {
	for _, c := range qo.Conditions {
		b = b.Where(c.Expr, c.Args...)
	}
	return b
}

func (m *model) selectFor(qo orm.QueryOptions) dbsql.ISelectBuilder {
	table := m.orm.sql.Dialect().QuoteIdentifier(m.table)
	b := where(m.orm.sql.Select().From(table), qo)
	if len(qo.Sorts) > 0 {
		parts := make([]string, len(qo.Sorts))
		for i, s := range qo.Sorts {
			parts[i] = s.Column + " ASC"
			if s.Desc {
				parts[i] = s.Column + " DESC"
			}
		}
		b = b.OrderBy(strings.Join(parts, ", "))
	}
	if qo.Limit > 0 {
		b = b.Limit(qo.Limit)
	}
	if qo.Offset > 0 {
		b = b.Offset(qo.Offset)
	}
	if qo.Lock {
		b = b.ForUpdate()
	}
	return b
}

func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	qo := orm.Collect(opts...)
	qo.Limit = 1
	rows, err := m.selectFor(qo).Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return orm.ErrNotFound
	}
	return m.scanRow(rows, dest)
}

func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	rows, err := m.selectFor(orm.Collect(opts...)).Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()
	return m.scanAll(rows, dest)
}

func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	table := m.orm.sql.Dialect().QuoteIdentifier(m.table)
	var n int64
	err := where(m.orm.sql.Select("COUNT(*)").From(table), orm.Collect(opts...)).QueryRow(ctx).Scan(&n)
	return n, err
}

// Create 多个实体合并为一条 INSERT，类型必须一致
func (m *model) Create(ctx context.Context, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}
	mp, err := m.mappingOf(entities[0])
	if err != nil {
		return err
	}
	cols := mp.insertable()
	if len(cols) == 0 {
		return fmt.Errorf("basic: %s has no insertable columns", mp.typ)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	ins := m.orm.sql.InsertInto(m.table).Columns(names...)
	for _, e := range entities {
		v, err := structValue(e)
		if err != nil {
			return err
		}
		if v.Type() != mp.typ {
			return fmt.Errorf("basic: cannot insert %s and %s in one batch", mp.typ, v.Type())
		}
		ins = ins.Values(values(v, cols)...)
	}
	_, err = ins.Exec(ctx)
	return m.writeErr(err)
}

// Save 写入除主键外的全部列
func (m *model) Save(ctx context.Context, entity any, opts ...orm.QueryOption) (int64, error) {
	qo := orm.Collect(opts...)
	if len(qo.Conditions) == 0 {
		return 0, errUnconditional
	}
	mp, err := m.mappingOf(entity)
	if err != nil {
		return 0, err
	}
	v, err := structValue(entity)
	if err != nil {
		return 0, err
	}

	upd := m.orm.sql.Update(m.table)
	for _, c := range mp.cols {
		if c.key {
			continue
		}
		if fv := fieldAt(v, c.index); fv.IsValid() {
			upd = upd.Set(c.name, fv.Interface())
		}
	}
	return m.affected(where(upd, qo).Exec(ctx))
}

func (m *model) UpdateValues(ctx context.Context, values map[string]any, opts ...orm.QueryOption) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	qo := orm.Collect(opts...)
	if len(qo.Conditions) == 0 {
		return 0, errUnconditional
	}
	return m.affected(where(m.orm.sql.Update(m.table).SetMap(values), qo).Exec(ctx))
}

var errUnconditional = errors.New("basic: update without conditions is not allowed")

func (m *model) affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, m.writeErr(err)
	}
	return res.RowsAffected()
}

// writeErr 唯一约束冲突包装为 orm.ErrDuplicateKey，保留驱动信息
func (m *model) writeErr(err error) error {
	if err != nil && m.orm.sql.Dialect().IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", orm.ErrDuplicateKey, err)
	}
	return err
}
