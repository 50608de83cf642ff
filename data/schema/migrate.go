package schema

import (
	"context"
	"database/sql"
	"fmt"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	dbsql "github.com/tbarracha/Spirekit-sub001/data/db/sql"
)

// Migrate 为每个 Model 创建数据表与索引（IF NOT EXISTS，可重复执行）。
//
// 只做新增，不修改或删除已有列。
func Migrate(ctx context.Context, db core.IDatabase, models ...*Model) error {
	s := dbsql.New(db)
	for _, m := range models {
		for _, stmt := range statements(s, m) {
			if _, err := stmt.Exec(ctx); err != nil {
				return fmt.Errorf("migrate %s: %w", m.table, err)
			}
		}
	}
	return nil
}

// DDL 返回 Model 在指定数据库方言下的建表与建索引语句。
func DDL(db core.IDatabase, m *Model) []string {
	stmts := statements(dbsql.New(db), m)
	out := make([]string, len(stmts))
	for i, stmt := range stmts {
		out[i] = stmt.Build()
	}
	return out
}

type ddlExec interface {
	Build() string
	Exec(ctx context.Context) (sql.Result, error)
}

func statements(s dbsql.ISql, m *Model) []ddlExec {
	d := s.Dialect()
	table := s.CreateTable(m.table).IfNotExists()
	for _, c := range m.columns {
		typ := c.SQLType
		if typ == "" {
			typ = d.ColumnType(c.Kind, c.MaxLength, c.Fixed)
		}
		table = table.Column(dbsql.ColumnDef{
			Name:    c.Name,
			Type:    typ,
			NotNull: c.Required || c.Key,
			Default: c.Default,
			Unique:  c.Unique,
		})
	}
	table = table.PrimaryKey(m.key...)

	out := []ddlExec{table}
	for _, ix := range m.indexes {
		b := s.CreateIndex(ix.Name, m.table, ix.Columns...).IfNotExists()
		if ix.Unique {
			b = b.Unique()
		}
		out = append(out, b)
	}
	return out
}
