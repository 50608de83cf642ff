package repo

import (
	"context"
	ers "errors"
	"time"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/domain"
)

// Add 新增实体。
//
// CreatedAt 未设置时取当前时间，UpdatedAt = CreatedAt，状态强制为 Active。
// 成功后调用方对象被回写为持久化后的值；失败时保持原样。
func (r *Repo[T, ID]) Add(ctx context.Context, entity T) (out T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "add", start, err) }()

	if isNil(entity) {
		return out, errNilEntity()
	}
	added, err := r.insert(ctx, r.orm.Model(r.meta), entity)
	if err != nil {
		return out, err
	}
	r.assign(entity, added)
	return entity, nil
}

// AddRange 在单个事务中批量新增，任一失败整体回滚。
func (r *Repo[T, ID]) AddRange(ctx context.Context, entities []T) (out []T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "add_range", start, err) }()

	if len(entities) == 0 {
		return []T{}, nil
	}
	added := make([]T, len(entities))
	err = r.inTx(ctx, func(m orm.IModel) error {
		for i, e := range entities {
			if isNil(e) {
				return errNilEntity()
			}
			cp, err := r.insert(ctx, m, e)
			if err != nil {
				return err
			}
			added[i] = cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, e := range entities {
		r.assign(e, added[i])
	}
	return entities, nil
}

// Update 持久化调用方修改的字段。
//
// 状态位、CreatedAt 与 CreatedBy 保持库中原值；UpdatedAt 取严格晚于库中值的当前时间。
// 调用方 UpdatedAt 为零值时不做乐观锁比较。
func (r *Repo[T, ID]) Update(ctx context.Context, entity T) (out T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "update", start, err) }()

	if isNil(entity) {
		return out, errNilEntity()
	}
	var updated T
	err = r.inTx(ctx, func(m orm.IModel) error {
		var err error
		updated, err = r.update(ctx, m, entity)
		return err
	})
	if err != nil {
		return out, err
	}
	r.assign(entity, updated)
	return entity, nil
}

// UpdateRange 在单个事务中批量更新，任一失败整体回滚。
func (r *Repo[T, ID]) UpdateRange(ctx context.Context, entities []T) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "update_range", start, err) }()

	if len(entities) == 0 {
		return nil
	}
	updated := make([]T, len(entities))
	err = r.inTx(ctx, func(m orm.IModel) error {
		for i, e := range entities {
			if isNil(e) {
				return errNilEntity()
			}
			cp, err := r.update(ctx, m, e)
			if err != nil {
				return err
			}
			updated[i] = cp
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, e := range entities {
		r.assign(e, updated[i])
	}
	return nil
}

// Transition 显式生命周期迁移，非法迁移返回 *domain.TransitionError。
func (r *Repo[T, ID]) Transition(ctx context.Context, id ID, to domain.State) (out T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "transition", start, err) }()

	err = r.inTx(ctx, func(m orm.IModel) error {
		var err error
		out, err = r.transition(ctx, m, id, to, false)
		return err
	})
	return out, err
}

// Delete 软删除：状态置为 Deleted 并刷新 UpdatedAt，返回库中更新后的实体。
//
// 已删除的实体再次删除不做任何修改，直接返回库中记录。
func (r *Repo[T, ID]) Delete(ctx context.Context, entity T) (out T, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "delete", start, err) }()

	if isNil(entity) {
		return out, errNilEntity()
	}
	err = r.inTx(ctx, func(m orm.IModel) error {
		var err error
		out, err = r.transition(ctx, m, entity.GetID(), domain.StateDeleted, true)
		return err
	})
	return out, err
}

// SoftDeleteByID 按主键软删除，记录不存在时 found=false。
func (r *Repo[T, ID]) SoftDeleteByID(ctx context.Context, id ID) (out T, found bool, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "delete", start, err) }()

	err = r.inTx(ctx, func(m orm.IModel) error {
		var err error
		out, err = r.transition(ctx, m, id, domain.StateDeleted, true)
		return err
	})
	if domain.IsNotFound(err) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		return out, false, err
	}
	return out, true, nil
}

// DeleteRange 在单个事务中批量软删除，任一失败整体回滚。
func (r *Repo[T, ID]) DeleteRange(ctx context.Context, entities []T) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "delete_range", start, err) }()

	if len(entities) == 0 {
		return nil
	}
	return r.inTx(ctx, func(m orm.IModel) error {
		for _, e := range entities {
			if isNil(e) {
				return errNilEntity()
			}
			if _, err := r.transition(ctx, m, e.GetID(), domain.StateDeleted, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// ------------------------------------------------------------------------
// 单行写入
// ------------------------------------------------------------------------

func (r *Repo[T, ID]) insert(ctx context.Context, m orm.IModel, entity T) (T, error) {
	var zero T
	cp := r.clone(entity)
	lc := lifecycle(cp)

	createdAt := cp.GetCreatedAt()
	if createdAt.IsZero() {
		createdAt = r.now()
	} else {
		createdAt = normalizeTime(createdAt)
	}
	lc.SetCreatedAt(createdAt)
	lc.SetUpdatedAt(createdAt)
	lc.SetState(domain.StateActive)
	stampActor(ctx, cp, true)
	if err := r.assignID(cp); err != nil {
		return zero, err
	}

	if err := validate(cp); err != nil {
		return zero, err
	}
	if err := m.Create(ctx, cp); err != nil {
		if ers.Is(err, orm.ErrDuplicateKey) {
			return zero, domain.NewConflictError(cp.GetID(), err)
		}
		return zero, dbError(err, "failed to insert record")
	}
	return cp, nil
}

// load 在事务内读取当前行（支持时加行锁）。
func (r *Repo[T, ID]) load(ctx context.Context, m orm.IModel, id ID) (T, error) {
	stored := r.newEntity()
	err := newScope(ctx, m).byKey(r.keyColumn, id).and(orm.ForUpdate()).first(stored)
	if err != nil {
		var zero T
		if ers.Is(err, orm.ErrNotFound) {
			return zero, domain.NewNotFoundError(id)
		}
		return zero, dbError(err, "failed to load record")
	}
	return stored, nil
}

func (r *Repo[T, ID]) update(ctx context.Context, m orm.IModel, entity T) (T, error) {
	var zero T
	id := entity.GetID()
	stored, err := r.load(ctx, m, id)
	if err != nil {
		return zero, err
	}

	// Deleted 为终态，先于乐观锁判断
	if stored.GetState().IsTerminal() {
		to := entity.GetState()
		if !to.IsValid() {
			to = domain.StateDeleted
		}
		return zero, domain.NewTransitionError(id, stored.GetState(), to)
	}
	expected := entity.GetUpdatedAt()
	if !expected.IsZero() && !expected.Equal(stored.GetUpdatedAt()) {
		return zero, domain.NewConcurrencyConflictError(id, expected, stored.GetUpdatedAt())
	}

	cp := r.clone(entity)
	lc := lifecycle(cp)
	lc.SetState(stored.GetState())
	lc.SetCreatedAt(stored.GetCreatedAt())
	lc.SetUpdatedAt(r.nextTimestamp(stored.GetUpdatedAt()))
	if a, ok := any(cp).(domain.IAuditable); ok {
		a.SetCreatedBy(any(stored).(domain.IAuditable).GetCreatedBy())
	}
	stampActor(ctx, cp, false)

	if err := validate(cp); err != nil {
		return zero, err
	}
	n, err := newScope(ctx, m).byKey(r.keyColumn, id).save(cp)
	if err != nil {
		if ers.Is(err, orm.ErrDuplicateKey) {
			return zero, domain.NewConflictError(id, err)
		}
		return zero, dbError(err, "failed to update record")
	}
	if n == 0 {
		return zero, domain.NewNotFoundError(id)
	}
	return cp, nil
}

// transition 读取当前行，经状态机校验后只写状态位与审计列。
// idempotent 为 true 时，目标状态与当前状态相同视为无操作。
func (r *Repo[T, ID]) transition(ctx context.Context, m orm.IModel, id ID, to domain.State, idempotent bool) (T, error) {
	var zero T
	stored, err := r.load(ctx, m, id)
	if err != nil {
		return zero, err
	}
	from := stored.GetState()
	if idempotent && from == to {
		return stored, nil
	}
	if _, err := domain.Transition(from, to); err != nil {
		return zero, domain.NewTransitionError(id, from, to)
	}

	at := r.nextTimestamp(stored.GetUpdatedAt())
	values := map[string]any{
		r.stateColumn:     to.Code(),
		r.updatedAtColumn: at,
	}
	lc := lifecycle(stored)
	lc.SetState(to)
	lc.SetUpdatedAt(at)
	if r.updatedByColumn != "" {
		values[r.updatedByColumn] = r.actorValue(ctx)
		stampActor(ctx, stored, false)
	}

	n, err := newScope(ctx, m).byKey(r.keyColumn, id).set(values)
	if err != nil {
		return zero, dbError(err, "failed to update lifecycle state")
	}
	if n == 0 {
		return zero, domain.NewNotFoundError(id)
	}
	return stored, nil
}
