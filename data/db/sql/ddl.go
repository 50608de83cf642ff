package sql

import (
	"context"
	"database/sql"
	"strings"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// ColumnDef 建表时的列定义。
//
// Default 为原样写入的 SQL 字面量（例如 `'a'` 或 `0`），由调用方负责转义。
type ColumnDef struct {
	Name    string
	Type    string
	NotNull bool
	Default string
	Unique  bool
}

type createTableBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table       string
	ifNotExists bool
	columns     []ColumnDef
	primaryKey  []string
}

func (b *createTableBuilder) IfNotExists() ICreateTableBuilder {
	b.ifNotExists = true
	return b
}

func (b *createTableBuilder) Column(def ColumnDef) ICreateTableBuilder {
	b.columns = append(b.columns, def)
	return b
}

func (b *createTableBuilder) PrimaryKey(columns ...string) ICreateTableBuilder {
	b.primaryKey = append([]string(nil), columns...)
	return b
}

func (b *createTableBuilder) Build() string {
	table := mustQuote(b.dialect, "table", b.table)
	if len(b.columns) == 0 {
		panic("sql: create table " + b.table + " without columns")
	}

	defs := make([]string, 0, len(b.columns)+1)
	for _, c := range b.columns {
		def := mustQuote(b.dialect, "column", c.Name) + " " + c.Type
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	if len(b.primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+mustQuoteAll(b.dialect, "column", b.primaryKey)+")")
	}

	head := "CREATE TABLE "
	if b.ifNotExists {
		head += "IF NOT EXISTS "
	}
	return head + table + " (" + strings.Join(defs, ", ") + ")"
}

func (b *createTableBuilder) Exec(ctx context.Context) (sql.Result, error) {
	return b.db.Exec(ctx, b.Build())
}

type createIndexBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	name        string
	table       string
	columns     []string
	unique      bool
	ifNotExists bool
}

func (b *createIndexBuilder) Unique() ICreateIndexBuilder {
	b.unique = true
	return b
}

// IfNotExists 仅在方言支持时生效（MySQL 不支持该语法）。
func (b *createIndexBuilder) IfNotExists() ICreateIndexBuilder {
	b.ifNotExists = true
	return b
}

func (b *createIndexBuilder) Build() string {
	name := mustQuote(b.dialect, "index", b.name)
	table := mustQuote(b.dialect, "table", b.table)
	if len(b.columns) == 0 {
		panic("sql: create index " + b.name + " without columns")
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if b.unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if b.ifNotExists && b.dialect.SupportsIndexIfNotExists() {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(name + " ON " + table + " (" + mustQuoteAll(b.dialect, "column", b.columns) + ")")
	return sb.String()
}

func (b *createIndexBuilder) Exec(ctx context.Context) (sql.Result, error) {
	return b.db.Exec(ctx, b.Build())
}
