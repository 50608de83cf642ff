// Package db 定义上层（sql 构建器、ORM、迁移）依赖的数据库抽象，
// 具体驱动由 data/db/basic 在 database/sql 之上实现。
package db

import (
	"context"
	"database/sql"
)

// IDatabase 查询与执行入口；事务 ITransaction 也实现该接口，
// 同一段代码可以不区分是否处于事务中。
type IDatabase interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error
}

// IDialectNameProvider 可选接口，返回驱动或方言名（mysql、sqlite、postgres），
// 用于推断占位符和标识符引号等方言差异。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 不支持嵌套，Begin 返回错误
type ITransaction interface {
	IDatabase
	Commit() error
	Rollback() error
}

// IRows *sql.Rows 的子集
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// IRow *sql.Row 的子集
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 连接配置，由 app.LoadConfig 从 SPIREKIT_DB_* 环境变量加载。
// sqlite 的 Database 即文件路径或 ":memory:"。
type DBConfig struct {
	Driver   string `env:"DRIVER" envDefault:"sqlite"`
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"`
	Database string `env:"NAME" envDefault:":memory:"`
	Username string `env:"USER"`
	Password string `env:"PASSWORD"`

	MaxOpenConns    int `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int `env:"CONN_MAX_LIFETIME"`  // 秒
	ConnMaxIdleTime int `env:"CONN_MAX_IDLE_TIME"` // 秒
}
