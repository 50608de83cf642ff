package sql

import (
	"context"
	"strings"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// selectBuilder From 接收已加引号的表表达式，列与排序表达式原样输出，
// 调用方负责其来源可信（通常来自实体配置的白名单）。
type selectBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	cols  []string
	from  string
	where conditions
	order string

	limit, offset int
	lock          bool
}

func (b *selectBuilder) From(table string) ISelectBuilder { b.from = table; return b }
func (b *selectBuilder) Limit(n int) ISelectBuilder       { b.limit = n; return b }
func (b *selectBuilder) Offset(n int) ISelectBuilder      { b.offset = n; return b }

func (b *selectBuilder) OrderBy(expr string) ISelectBuilder {
	if expr != "" {
		b.order = expr
	}
	return b
}

func (b *selectBuilder) Where(cond string, args ...any) ISelectBuilder {
	b.where.add(cond, args)
	return b
}

// ForUpdate 追加行级锁，方言不支持时忽略（SQLite 写事务本身串行）
func (b *selectBuilder) ForUpdate() ISelectBuilder {
	b.lock = b.dialect.SupportsForUpdate()
	return b
}

// Build 每次调用生成新的参数切片，可重复调用
func (b *selectBuilder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(b.cols, ", ") + " FROM " + b.from)

	args := b.where.writeTo(&sb, make([]any, 0, len(b.where.args)+2))
	if b.order != "" {
		sb.WriteString(" ORDER BY " + b.order)
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}
	if b.lock {
		sb.WriteString(" FOR UPDATE")
	}
	return sb.String(), args
}

func (b *selectBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.db.Query(ctx, q, args...)
}

func (b *selectBuilder) QueryRow(ctx context.Context) core.IRow {
	q, args := b.Build()
	return b.db.QueryRow(ctx, q, args...)
}
