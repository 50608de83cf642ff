// Package repo 基于 data/orm 实现通用的实体生命周期仓储。
package repo

import (
	"context"
	ers "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/domain/entity"
	"github.com/tbarracha/Spirekit-sub001/domain/repository"
	"github.com/tbarracha/Spirekit-sub001/errors"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// Repo 基于 data/orm 的通用仓储实现。
//
// T 必须是结构体指针（例如 *Account），结构体嵌入 entity.Entity[ID] 或
// entity.AuditedEntity[ID]，并已在 schema 注册表中登记。
type Repo[T domain.IEntity[ID], ID comparable] struct {
	orm   orm.IOrm
	model *schema.Model
	meta  *orm.ModelMeta
	elem  reflect.Type

	keyColumn       string
	stateColumn     string
	updatedAtColumn string
	updatedByColumn string // 非审计实体为空

	// int64 主键为零值时由 newID 分配；其他主键类型为 nil
	keyIndex []int
	newID    func() (ID, error)

	clock   func() time.Time
	logger  logging.Logger
	metrics *monitoring.Metrics
}

// Option 仓储配置项。
type Option func(*options)

type options struct {
	clock   func() time.Time
	logger  logging.Logger
	metrics *monitoring.Metrics
	ids     *entity.IDGenerator
}

// WithClock 替换时间源（测试用）。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics 设置 Prometheus 指标。
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIDGenerator 指定 int64 主键的生成器（按节点号区分），默认使用进程级生成器。
func WithIDGenerator(g *entity.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New 创建仓储实例。
//
// model 决定表名、主键列与可过滤字段；T 的元素类型必须与 model 的类型一致。
func New[T domain.IEntity[ID], ID comparable](o orm.IOrm, model *schema.Model, opts ...Option) (*Repo[T, ID], error) {
	if o == nil || model == nil {
		return nil, fmt.Errorf("repo: orm and model are required")
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("repo: entity type must be a pointer to struct, got %s", t)
	}
	if t.Elem() != model.Type() {
		return nil, fmt.Errorf("repo: entity type %s does not match model %s", t.Elem(), model.Type())
	}
	if _, ok := reflect.New(t.Elem()).Interface().(domain.ILifecycle); !ok {
		return nil, fmt.Errorf("repo: %s does not implement domain.ILifecycle", t)
	}
	key := model.Key()
	if len(key) != 1 {
		return nil, fmt.Errorf("repo: %s must have exactly one key column, got %d", model.Table(), len(key))
	}

	cfg := options{
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = logging.GetLogger()
	}

	r := &Repo[T, ID]{
		orm:       o,
		model:     model,
		meta:      model.Meta(),
		elem:      t.Elem(),
		keyColumn: key[0],
		clock:     cfg.clock,
		logger: cfg.logger.WithFields(
			logging.String("component", "repository"),
			logging.String("entity", model.Table()),
		),
		metrics: cfg.metrics,
	}
	for field, dst := range map[string]*string{
		schema.FieldState:     &r.stateColumn,
		schema.FieldUpdatedAt: &r.updatedAtColumn,
	} {
		col, ok := model.Column(field)
		if !ok {
			return nil, fmt.Errorf("repo: %s has no %s column", model.Table(), field)
		}
		*dst = col.Name
	}
	if col, ok := model.Column(schema.FieldUpdatedBy); ok {
		r.updatedByColumn = col.Name
	}
	if col, ok := model.Column(key[0]); ok && col.GoType.Kind() == reflect.Int64 {
		r.keyIndex = col.Index
		r.newID = int64IDs[ID](col.GoType, cfg.ids)
	}
	return r, nil
}

func int64IDs[ID comparable](keyType reflect.Type, g *entity.IDGenerator) func() (ID, error) {
	next := entity.NextInt64ID
	if g != nil {
		next = g.Next
	}
	return func() (ID, error) {
		var id ID
		n, err := next()
		if err != nil {
			return id, err
		}
		id, _ = reflect.ValueOf(n).Convert(keyType).Interface().(ID)
		return id, nil
	}
}

// MustNew 同 New，失败时 panic（用于启动阶段装配）。
func MustNew[T domain.IEntity[ID], ID comparable](o orm.IOrm, model *schema.Model, opts ...Option) *Repo[T, ID] {
	r, err := New[T, ID](o, model, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Model 返回仓储使用的 schema 模型。
func (r *Repo[T, ID]) Model() *schema.Model { return r.model }

// Orm 返回绑定的 ORM 引擎。
func (r *Repo[T, ID]) Orm() orm.IOrm { return r.orm }

func (r *Repo[T, ID]) scope(ctx context.Context) scope {
	return newScope(ctx, r.orm.Model(r.meta))
}

// inTx 在单个事务中执行 fn；fn 返回错误或 panic 时回滚。
func (r *Repo[T, ID]) inTx(ctx context.Context, fn func(m orm.IModel) error) error {
	sess, err := r.orm.Begin(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to begin transaction")
	}
	defer func() { _ = sess.Rollback() }()

	if err := fn(sess.Model(r.meta)); err != nil {
		return err
	}
	if err := sess.Commit(); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to commit transaction")
	}
	return nil
}

// ------------------------------------------------------------------------
// 时间戳
// ------------------------------------------------------------------------

// normalizeTime 统一为 UTC 微秒精度，保证经过各类驱动往返后仍可精确比较。
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (r *Repo[T, ID]) now() time.Time {
	return normalizeTime(r.clock())
}

// nextTimestamp 返回严格晚于 prev 的写入时间；时钟未前进（或回拨）时取 prev + 1µs。
func (r *Repo[T, ID]) nextTimestamp(prev time.Time) time.Time {
	now := r.now()
	prev = normalizeTime(prev)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// ------------------------------------------------------------------------
// 实体工具
// ------------------------------------------------------------------------

func (r *Repo[T, ID]) newEntity() T {
	return reflect.New(r.elem).Interface().(T)
}

// clone 浅拷贝实体，写入在副本上进行，成功后才回写调用方对象。
func (r *Repo[T, ID]) clone(e T) T {
	cp := reflect.New(r.elem)
	cp.Elem().Set(reflect.ValueOf(e).Elem())
	return cp.Interface().(T)
}

func (r *Repo[T, ID]) assign(dst, src T) {
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(src).Elem())
}

func isNil[T any](e T) bool {
	v := reflect.ValueOf(e)
	return !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil())
}

func errNilEntity() error {
	return errors.NewError(errors.ErrCodeInvalidInput, "entity must not be nil")
}

func lifecycle(e any) domain.ILifecycle {
	return e.(domain.ILifecycle)
}

func validate(e any) error {
	if v, ok := e.(domain.IValidatable); ok {
		if err := v.Validate(); err != nil {
			return errors.WrapError(err, errors.ErrCodeValidation, "entity validation failed")
		}
	}
	return nil
}

// stampActor 根据上下文中的操作人填充审计字段；created 为 true 时同时写 CreatedBy。
func stampActor(ctx context.Context, e any, created bool) {
	a, ok := e.(domain.IAuditable)
	if !ok {
		return
	}
	var by *string
	if actor, ok := repository.ActorFrom(ctx); ok {
		by = &actor
	}
	if created {
		a.SetCreatedBy(by)
	}
	a.SetUpdatedBy(by)
}

func (r *Repo[T, ID]) actorValue(ctx context.Context) any {
	if actor, ok := repository.ActorFrom(ctx); ok {
		return actor
	}
	return nil
}

// ------------------------------------------------------------------------
// 错误与观测
// ------------------------------------------------------------------------

// assignID 为零值 int64 主键分配雪花 ID
func (r *Repo[T, ID]) assignID(e T) error {
	var none ID
	if r.newID == nil || e.GetID() != none {
		return nil
	}
	id, err := r.newID()
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to generate id")
	}
	reflect.ValueOf(e).Elem().FieldByIndex(r.keyIndex).Set(reflect.ValueOf(id))
	return nil
}

func dbError(err error, msg string) error {
	return errors.WrapError(err, errors.ErrCodeDatabase, msg)
}

func isInfraError(err error) bool {
	var appErr errors.IError
	return ers.As(err, &appErr) && appErr.Code() == errors.ErrCodeDatabase
}

// observe 记录指标；基础设施错误额外记录日志，业务错误（未找到、冲突等）由调用方处理。
func (r *Repo[T, ID]) observe(ctx context.Context, op string, start time.Time, err error) {
	r.metrics.ObserveRepository(r.model.Table(), op, monitoring.Outcome(err), time.Since(start))
	if err != nil && isInfraError(err) {
		r.logger.Error(ctx, "repository operation failed",
			logging.String("operation", op),
			logging.Error(err))
	}
}
