// Package basic 在 database/sql 之上实现 data/db 的抽象。
//
// 驱动需由调用方空导入注册，例如 _ "modernc.org/sqlite"。
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// pingTimeout 打开连接后的可用性检查
const pingTimeout = 3 * time.Second

// querier *sql.DB 与 *sql.Tx 共有的方法
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// executor 执行前把 ? 改写为方言占位符
type executor struct {
	q       querier
	dialect dialect.Dialect
}

func (e executor) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := e.q.QueryContext(ctx, e.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e executor) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return e.q.QueryRowContext(ctx, e.dialect.Rebind(query), args...)
}

func (e executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return e.q.ExecContext(ctx, e.dialect.Rebind(query), args...)
}

// GetDialectName 实现 core.IDialectNameProvider
func (e executor) GetDialectName() string { return string(e.dialect.Name()) }

// DB 连接池
type DB struct {
	executor
	db *sql.DB
}

// New 打开连接池并 Ping 一次。
//
// Driver 为空时使用 sqlite；内存 sqlite 的每个连接都是独立的库，
// 未配置 MaxOpenConns 时限制为单连接。
func New(cfg core.DBConfig) (core.IDatabase, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	d := dialect.New(cfg.Driver)
	dsn := DSN(cfg)

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	switch {
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	case d.Name() == dialect.NameSQLite && dsn == ":memory:":
		db.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return &DB{executor: executor{q: db, dialect: d}, db: db}, nil
}

// DSN 未配置 Host 时 Database 即完整 DSN（sqlite 为文件路径）；
// 否则按方言由 Host/Port/Username/Password/Database 拼装。
func DSN(cfg core.DBConfig) string {
	d := dialect.New(cfg.Driver)
	if cfg.Host == "" {
		if cfg.Database == "" && d.Name() == dialect.NameSQLite {
			return ":memory:"
		}
		return cfg.Database
	}
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	switch d.Name() {
	case dialect.NameMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", cfg.Username, cfg.Password, addr, cfg.Database)
	case dialect.NamePostgres:
		return fmt.Sprintf("postgres://%s:%s@%s/%s", cfg.Username, cfg.Password, addr, cfg.Database)
	default:
		return cfg.Database
	}
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	return d.BeginTx(ctx, nil)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{executor: executor{q: tx, dialect: d.dialect}, db: d.db, tx: tx}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
