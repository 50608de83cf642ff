package basic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.DBConfig
		want string
	}{
		{"sqlite default", core.DBConfig{Driver: "sqlite"}, ":memory:"},
		{"sqlite file", core.DBConfig{Driver: "sqlite", Database: "/tmp/app.db"}, "/tmp/app.db"},
		{"raw dsn", core.DBConfig{Driver: "mysql", Database: "u:p@/db"}, "u:p@/db"},
		{"mysql", core.DBConfig{Driver: "mysql", Host: "db", Port: 3306, Username: "u", Password: "p", Database: "app"},
			"u:p@tcp(db:3306)/app?parseTime=true"},
		{"postgres", core.DBConfig{Driver: "postgres", Host: "db", Username: "u", Password: "p", Database: "app"},
			"postgres://u:p@db/app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestDB_ExecQueryTx(t *testing.T) {
	db, err := New(core.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	assert.Equal(t, "sqlite", db.(core.IDialectNameProvider).GetDialectName())
	_, err = db.Exec(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)")
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO kv (k, v) VALUES (?, ?)", "a", 1)
	require.NoError(t, err)
	_, err = tx.Begin(ctx)
	assert.ErrorIs(t, err, ErrNestedTx)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "已提交的事务再回滚不报错")

	var v int
	require.NoError(t, db.QueryRow(ctx, "SELECT v FROM kv WHERE k = ?", "a").Scan(&v))
	assert.Equal(t, 1, v)

	rows, err := db.Query(ctx, "SELECT k FROM kv")
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, cols)

	_, err = New(core.DBConfig{Driver: "nosuchdriver"})
	assert.Error(t, err)
}
