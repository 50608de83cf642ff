package sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// namedDB 只提供方言名，用于纯构建测试。
type namedDB struct {
	core.IDatabase
	name string
}

func (d namedDB) GetDialectName() string { return d.name }

func TestSelectBuilder_Build(t *testing.T) {
	s := New(namedDB{name: "sqlite"})
	q, args := s.Select("id", "name").
		From(`"users"`).
		Where("state_flag = ?", "a").
		Where("").
		OrderBy("id ASC").
		Limit(10).
		Offset(20).
		ForUpdate().
		Build()

	assert.Equal(t, `SELECT id, name FROM "users" WHERE state_flag = ? ORDER BY id ASC LIMIT ? OFFSET ?`, q)
	assert.Equal(t, []any{"a", 10, 20}, args)

	// Postgres 支持行锁
	pq, _ := New(namedDB{name: "postgres"}).Select().From("t").ForUpdate().Build()
	assert.Equal(t, "SELECT * FROM t FOR UPDATE", pq)
}

func TestSelectBuilder_BuildIsRepeatable(t *testing.T) {
	b := New(namedDB{name: "mysql"}).Select("id").From("t").Limit(1)
	q1, a1 := b.Build()
	q2, a2 := b.Build()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}

func TestInsertBuilder_Build(t *testing.T) {
	q, args := New(namedDB{name: "mysql"}).InsertInto("users").
		Columns("id", "name").
		Values("u1", "a").
		Values("u2", "b").
		Build()
	assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (?, ?), (?, ?)", q)
	assert.Equal(t, []any{"u1", "a", "u2", "b"}, args)

	assert.Panics(t, func() {
		New(namedDB{name: "sqlite"}).InsertInto("users; drop").Columns("id").Values(1).Build()
	})
	assert.Panics(t, func() {
		New(namedDB{name: "sqlite"}).InsertInto("users").Columns("id", "name").Values(1).Build()
	})
}

func TestUpdateBuilder_SetMapIsSorted(t *testing.T) {
	q, args := New(namedDB{name: "sqlite"}).Update("users").
		SetMap(map[string]any{"updated_at": 2, "state_flag": "i", "name": "x"}).
		Where("id = ?", "u1").
		Where("updated_at = ?", 1).
		Build()
	assert.Equal(t, `UPDATE "users" SET "name" = ?, "state_flag" = ?, "updated_at" = ? WHERE id = ? AND updated_at = ?`, q)
	assert.Equal(t, []any{"x", "i", 2, "u1", 1}, args)

	assert.Panics(t, func() { New(namedDB{name: "sqlite"}).Update("users").Build() })
	assert.Panics(t, func() { New(namedDB{name: "sqlite"}).Update("users").Set("bad col", 1).Build() })
}

func TestCreateTableBuilder_Build(t *testing.T) {
	q := New(namedDB{name: "sqlite"}).CreateTable("users").
		IfNotExists().
		Column(ColumnDef{Name: "id", Type: "TEXT", NotNull: true}).
		Column(ColumnDef{Name: "state_flag", Type: "CHAR(1)", NotNull: true, Default: "'a'"}).
		Column(ColumnDef{Name: "email", Type: "VARCHAR(128)", Unique: true}).
		PrimaryKey("id").
		Build()
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "users" ("id" TEXT NOT NULL, "state_flag" CHAR(1) NOT NULL DEFAULT 'a', "email" VARCHAR(128) UNIQUE, PRIMARY KEY ("id"))`,
		q)

	assert.Panics(t, func() { New(namedDB{name: "sqlite"}).CreateTable("users").Build() })
	assert.Panics(t, func() {
		New(namedDB{name: "sqlite"}).CreateTable("users").Column(ColumnDef{Name: "bad name", Type: "TEXT"}).Build()
	})
}

func TestCreateIndexBuilder_Build(t *testing.T) {
	q := New(namedDB{name: "sqlite"}).CreateIndex("ix_users_email", "users", "email", "state_flag").
		Unique().IfNotExists().Build()
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "ix_users_email" ON "users" ("email", "state_flag")`, q)

	// MySQL 不支持 IF NOT EXISTS，忽略
	q = New(namedDB{name: "mysql"}).CreateIndex("ix_a", "t", "a").IfNotExists().Build()
	assert.Equal(t, "CREATE INDEX `ix_a` ON `t` (`a`)", q)
}

func TestIsSafeIdentifier(t *testing.T) {
	for _, ok := range []string{"users", "_tmp", "app.users", "a1_b2"} {
		assert.True(t, isSafeIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1users", "users;", "app..users", "users.", "na me", `"users"`} {
		assert.False(t, isSafeIdentifier(bad), bad)
	}
	assert.Equal(t, "?, ?, ?", placeholders(3))
	assert.Empty(t, placeholders(0))
}

func TestSql_Dialect(t *testing.T) {
	assert.Equal(t, dialect.NamePostgres, New(namedDB{name: "postgresql"}).Dialect().Name())
	assert.Equal(t, dialect.NameUnknown, New(nil).Dialect().Name())
}

// recordingDB 记录最后一次执行的语句。
type recordingDB struct {
	namedDB
	query string
	args  []any
}

func (d *recordingDB) Exec(_ context.Context, query string, args ...any) (sql.Result, error) {
	d.query, d.args = query, args
	return nil, nil
}

func (d *recordingDB) GetDialectName() string { return d.name }

func TestCreateTableBuilder_Exec(t *testing.T) {
	db := &recordingDB{namedDB: namedDB{name: "sqlite"}}
	_, err := New(db).CreateTable("t").Column(ColumnDef{Name: "id", Type: "INTEGER"}).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "t" ("id" INTEGER)`, db.query)
	assert.Empty(t, db.args)
}
