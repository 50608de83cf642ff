package basic

import (
	"context"
	"database/sql"
	"errors"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
)

// ErrNestedTx 事务内再次开启事务
var ErrNestedTx = errors.New("basic: nested transactions are not supported")

// Tx 事务，同时满足 core.IDatabase，可直接交给构建器与 ORM 使用
type Tx struct {
	executor
	db *sql.DB
	tx *sql.Tx
}

func (t *Tx) Begin(context.Context) (core.ITransaction, error) { return nil, ErrNestedTx }

func (t *Tx) BeginTx(context.Context, *sql.TxOptions) (core.ITransaction, error) {
	return nil, ErrNestedTx
}

func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }

// Close 事务没有独立的连接可关，由 Commit/Rollback 结束
func (t *Tx) Close() error { return nil }

func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback 事务已结束时返回 nil，可放在 defer 中无条件调用
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
