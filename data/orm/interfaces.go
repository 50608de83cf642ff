package orm

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/tbarracha/Spirekit-sub001/data/db"
)

var (
	// ErrNotFound First 没有匹配行
	ErrNotFound = errors.New("orm: record not found")
	// ErrDuplicateKey 写入违反主键或唯一约束，适配器以 %w 包装驱动原始错误
	ErrDuplicateKey = errors.New("orm: duplicate key")
)

// Capability 适配器的可选能力，按位组合
type Capability uint8

const (
	CapBatchWrite Capability = 1 << iota
	CapTransaction
	CapRowLock
)

// Has 是否同时具备 want 中的全部能力
func (c Capability) Has(want Capability) bool {
	return want != 0 && c&want == want
}

func (c Capability) String() string {
	var names []string
	for _, n := range []struct {
		c    Capability
		name string
	}{{CapBatchWrite, "batch_write"}, {CapTransaction, "transaction"}, {CapRowLock, "row_lock"}} {
		if c.Has(n.c) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// IOrm ORM 适配器
type IOrm interface {
	Capabilities() Capability
	// Model meta 为 nil 或无法确定表名时 panic
	Model(meta *ModelMeta) IModel
	Begin(ctx context.Context) (IOrmSession, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (IOrmSession, error)
	Database() db.IDatabase
}

// IOrmSession 事务内的 IOrm
type IOrmSession interface {
	IOrm
	Commit() error
	Rollback() error
}

// IModel 单表操作。
//
// 没有物理删除，删除由调用方通过 UpdateValues 写状态位完成。
type IModel interface {
	Meta() *ModelMeta

	// First dest 为 *struct，无匹配时返回 ErrNotFound
	First(ctx context.Context, dest any, opts ...QueryOption) error
	// Find dest 为 *[]T 或 *[]*T
	Find(ctx context.Context, dest any, opts ...QueryOption) error
	// Count 只使用条件，忽略排序与分页
	Count(ctx context.Context, opts ...QueryOption) (int64, error)

	Create(ctx context.Context, entities ...any) error
	// Save 整行更新（主键列除外），必须带条件
	Save(ctx context.Context, entity any, opts ...QueryOption) (int64, error)
	// UpdateValues 按列更新，必须带条件
	UpdateValues(ctx context.Context, values map[string]any, opts ...QueryOption) (int64, error)
}
