// Package sql 生成方言无关的 SQL 并在 IDatabase 上执行。
//
// 语句一律使用 ? 占位符，由 IDatabase 在执行前按方言改写；
// 表名和列名先校验再加引号，非法标识符直接 panic。
package sql

import (
	"context"
	"database/sql"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// ISql 语句构建入口
type ISql interface {
	Select(columns ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder
	CreateTable(table string) ICreateTableBuilder
	CreateIndex(name, table string, columns ...string) ICreateIndexBuilder

	Dialect() dialect.Dialect
}

type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	OrderBy(expr string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	ForUpdate() ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

type IInsertBuilder interface {
	Columns(cols ...string) IInsertBuilder
	Values(vals ...any) IInsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

type IUpdateBuilder interface {
	Set(column string, val any) IUpdateBuilder
	SetMap(values map[string]any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// ICreateTableBuilder DDL 不带参数，Build 只返回语句
type ICreateTableBuilder interface {
	IfNotExists() ICreateTableBuilder
	Column(def ColumnDef) ICreateTableBuilder
	PrimaryKey(columns ...string) ICreateTableBuilder
	Build() string
	Exec(ctx context.Context) (sql.Result, error)
}

type ICreateIndexBuilder interface {
	Unique() ICreateIndexBuilder
	IfNotExists() ICreateIndexBuilder
	Build() string
	Exec(ctx context.Context) (sql.Result, error)
}

// builder 所有构建器共享的执行目标与方言
type builder struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

// New 绑定 db 并从其驱动名推断方言；db 为 nil 时方言为 unknown，只能 Build 不能执行。
func New(db core.IDatabase) ISql {
	return builder{db: db, dialect: dialect.FromDatabase(db)}
}

func (s builder) Dialect() dialect.Dialect { return s.dialect }

// Select 不传列时为 SELECT *
func (s builder) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{db: s.db, dialect: s.dialect, cols: columns}
}

func (s builder) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{db: s.db, dialect: s.dialect, table: table}
}

func (s builder) Update(table string) IUpdateBuilder {
	return &updateBuilder{db: s.db, dialect: s.dialect, table: table}
}

func (s builder) CreateTable(table string) ICreateTableBuilder {
	return &createTableBuilder{db: s.db, dialect: s.dialect, table: table}
}

func (s builder) CreateIndex(name, table string, columns ...string) ICreateIndexBuilder {
	return &createIndexBuilder{db: s.db, dialect: s.dialect, name: name, table: table, columns: columns}
}
