package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// insertBuilder 多行 VALUES 合并为一条语句
type insertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table   string
	columns []string
	rows    [][]any
}

func (b *insertBuilder) Columns(cols ...string) IInsertBuilder {
	b.columns = cols
	return b
}

// Values 追加一行，空行忽略
func (b *insertBuilder) Values(vals ...any) IInsertBuilder {
	if len(vals) > 0 {
		b.rows = append(b.rows, vals)
	}
	return b
}

func (b *insertBuilder) Build() (string, []any) {
	table := mustQuote(b.dialect, "table", b.table)
	switch {
	case len(b.columns) == 0:
		panic("sql: insert into " + b.table + " without columns")
	case len(b.rows) == 0:
		panic("sql: insert into " + b.table + " without rows")
	}

	tuple := "(" + placeholders(len(b.columns)) + ")"
	tuples := make([]string, len(b.rows))
	args := make([]any, 0, len(b.rows)*len(b.columns))
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			panic(fmt.Sprintf("sql: insert row %d has %d values for %d columns", i, len(row), len(b.columns)))
		}
		tuples[i] = tuple
		args = append(args, row...)
	}

	q := "INSERT INTO " + table + " (" + mustQuoteAll(b.dialect, "column", b.columns) + ") VALUES " + strings.Join(tuples, ", ")
	return q, args
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}
