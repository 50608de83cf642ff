// Package basic 在 data/db 与 data/db/sql 之上实现 orm.IOrm。
//
// 列映射优先使用 ModelMeta.Fields 中的字段索引（由 schema 注册表生成），
// 缺失时按 db 标签与 snake_case 约定从结构体推断并缓存。
package basic

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
	dbsql "github.com/tbarracha/Spirekit-sub001/data/db/sql"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

// Orm 同一 Orm 派生出的事务会话共享推断映射的缓存
type Orm struct {
	db       dbcore.IDatabase
	sql      dbsql.ISql
	caps     orm.Capability
	mappings *sync.Map // reflect.Type -> *mapping
}

func New(db dbcore.IDatabase) orm.IOrm {
	return bind(db, &sync.Map{})
}

func bind(db dbcore.IDatabase, mappings *sync.Map) *Orm {
	s := dbsql.New(db)
	caps := orm.CapBatchWrite | orm.CapTransaction
	if s.Dialect().SupportsForUpdate() {
		caps |= orm.CapRowLock
	}
	return &Orm{db: db, sql: s, caps: caps, mappings: mappings}
}

// Capabilities 行锁取决于方言
func (o *Orm) Capabilities() orm.Capability { return o.caps }
func (o *Orm) Database() dbcore.IDatabase   { return o.db }
func (o *Orm) Dialect() dialect.Dialect     { return o.sql.Dialect() }

// Model 表名取 meta.Table，为空时由 meta.Model 推断
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	if meta == nil {
		panic("basic: model meta is nil")
	}
	table := meta.Table
	if table == "" {
		table = orm.TableName(meta.Model)
	}
	if table == "" {
		panic("basic: cannot determine table name")
	}
	return &model{orm: o, meta: meta, table: table, declared: mappingFromMeta(meta)}
}

func (o *Orm) Begin(ctx context.Context) (orm.IOrmSession, error) {
	return o.BeginTx(ctx, nil)
}

func (o *Orm) BeginTx(ctx context.Context, opts *sql.TxOptions) (orm.IOrmSession, error) {
	tx, err := o.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &session{Orm: bind(tx, o.mappings), tx: tx}, nil
}

var errNoTx = errors.New("basic: session has no transaction")

// session 事务内的 Orm
type session struct {
	*Orm
	tx dbcore.ITransaction
}

func (s *session) Commit() error {
	if s.tx == nil {
		return errNoTx
	}
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return errNoTx
	}
	return s.tx.Rollback()
}
