package sql

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

type assignment struct {
	column string
	value  any
}

type updateBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	sets  []assignment
	where conditions
}

func (b *updateBuilder) Set(col string, val any) IUpdateBuilder {
	if col != "" {
		b.sets = append(b.sets, assignment{column: col, value: val})
	}
	return b
}

// SetMap 按列名排序追加，生成的语句与 map 遍历顺序无关
func (b *updateBuilder) SetMap(values map[string]any) IUpdateBuilder {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		b.Set(c, values[c])
	}
	return b
}

func (b *updateBuilder) Where(cond string, args ...any) IUpdateBuilder {
	b.where.add(cond, args)
	return b
}

func (b *updateBuilder) Build() (string, []any) {
	table := mustQuote(b.dialect, "table", b.table)
	if len(b.sets) == 0 {
		panic("sql: update " + b.table + " without assignments")
	}

	var sb strings.Builder
	sb.WriteString("UPDATE " + table + " SET ")
	args := make([]any, 0, len(b.sets)+len(b.where.args))
	for i, s := range b.sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(mustQuote(b.dialect, "column", s.column) + " = ?")
		args = append(args, s.value)
	}
	args = b.where.writeTo(&sb, args)
	return sb.String(), args
}

func (b *updateBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}
