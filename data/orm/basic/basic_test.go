package basic

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	dbbasic "github.com/tbarracha/Spirekit-sub001/data/db/basic"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/domain/entity"
)

type note struct {
	entity.AuditedEntity[string]
	Title string
	Body  *string
	Views int64
}

func setup(t *testing.T) (orm.IOrm, *schema.Model) {
	t.Helper()
	db, err := dbbasic.New(dbcore.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := schema.NewRegistry()
	schema.Register[note](r, schema.ConfigureAudited)
	require.NoError(t, r.Build())
	m, ok := schema.ModelFor[note](r)
	require.True(t, ok)
	require.NoError(t, schema.Migrate(context.Background(), db, m))
	return New(db), m
}

var baseTime = time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

func newNote(id, title string) *note {
	n := &note{Title: title}
	n.ID = id
	n.CreatedAt = baseTime
	n.UpdatedAt = baseTime
	n.State = domain.StateActive
	return n
}

func TestModel_CreateAndFirst(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()
	model := o.Model(m.Meta())

	body := "hello"
	actor := "alice"
	n := newNote("n1", "first")
	n.Body = &body
	n.CreatedBy = &actor
	require.NoError(t, model.Create(ctx, n))

	var got note
	require.NoError(t, model.First(ctx, &got, orm.Where("id = ?", "n1")))
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, "first", got.Title)
	assert.True(t, got.CreatedAt.Equal(baseTime), "got %v", got.CreatedAt)
	assert.True(t, got.UpdatedAt.Equal(baseTime))
	assert.Equal(t, domain.StateActive, got.State)
	require.NotNil(t, got.Body)
	assert.Equal(t, "hello", *got.Body)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "alice", *got.CreatedBy)
	assert.Nil(t, got.UpdatedBy)

	err := model.First(ctx, &got, orm.Where("id = ?", "missing"))
	assert.ErrorIs(t, err, orm.ErrNotFound)
}

func TestModel_CreateDuplicate(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()
	model := o.Model(m.Meta())

	require.NoError(t, model.Create(ctx, newNote("n1", "a")))
	err := model.Create(ctx, newNote("n1", "b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, orm.ErrDuplicateKey), "got %v", err)
}

func TestModel_FindCountAndPaging(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()
	model := o.Model(m.Meta())

	require.NoError(t, model.Create(ctx, newNote("n3", "c"), newNote("n1", "a"), newNote("n2", "b")))

	var ptrs []*note
	require.NoError(t, model.Find(ctx, &ptrs, orm.OrderBy("id", false)))
	require.Len(t, ptrs, 3)
	assert.Equal(t, []string{"n1", "n2", "n3"}, []string{ptrs[0].ID, ptrs[1].ID, ptrs[2].ID})

	var values []note
	require.NoError(t, model.Find(ctx, &values,
		orm.OrderBy("id", true), orm.Page(1, 1)))
	require.Len(t, values, 1)
	assert.Equal(t, "n2", values[0].ID)

	var in []note
	require.NoError(t, model.Find(ctx, &in, orm.In("id", "n1", "n3"), orm.OrderBy("id", false)))
	require.Len(t, in, 2)
	assert.Equal(t, "n3", in[1].ID)

	var none []note
	require.NoError(t, model.Find(ctx, &none, orm.In("id")))
	assert.Empty(t, none)

	count, err := model.Count(ctx, orm.Where("title <> ?", "a"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestModel_SaveAndUpdateValues(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()
	model := o.Model(m.Meta())
	require.NoError(t, model.Create(ctx, newNote("n1", "a")))

	n := newNote("n1", "renamed")
	n.Views = 7
	affected, err := model.Save(ctx, n, orm.Where("id = ?", "n1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = model.Save(ctx, newNote("zz", "x"), orm.Where("id = ?", "zz"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = model.UpdateValues(ctx, map[string]any{"state_flag": domain.StateInactive}, orm.Where("id = ?", "n1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var got note
	require.NoError(t, model.First(ctx, &got, orm.Where("id = ?", "n1")))
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, int64(7), got.Views)
	assert.Equal(t, domain.StateInactive, got.State)

	_, err = model.Save(ctx, n)
	assert.Error(t, err)
	_, err = model.UpdateValues(ctx, map[string]any{"title": "x"})
	assert.Error(t, err)
}

func TestOrm_Transaction(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()

	sess, err := o.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Model(m.Meta()).Create(ctx, newNote("n1", "a")))
	require.NoError(t, sess.Rollback())
	// 回滚后再次回滚视为成功
	require.NoError(t, sess.Rollback())

	count, err := o.Model(m.Meta()).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	sess, err = o.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Model(m.Meta()).Create(ctx, newNote("n2", "b")))
	require.NoError(t, sess.Commit())

	count, err = o.Model(m.Meta()).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = sess.Begin(ctx)
	assert.Error(t, err, "不支持嵌套事务")
}

func TestOrm_ConventionFallback(t *testing.T) {
	o, _ := setup(t)
	ctx := context.Background()

	// 不携带字段元信息时按 db 标签 / snake_case 推断
	model := o.Model(&orm.ModelMeta{Model: &note{}})
	require.NoError(t, model.Create(ctx, newNote("n1", "a")))

	var got []note
	require.NoError(t, model.Find(ctx, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, domain.StateActive, got[0].State)
}

func TestOrm_Capabilities(t *testing.T) {
	o, m := setup(t)
	caps := o.Capabilities()
	assert.True(t, caps.Has(orm.CapTransaction|orm.CapBatchWrite))
	assert.False(t, caps.Has(orm.CapRowLock), "sqlite 不支持 FOR UPDATE")
	assert.Equal(t, "batch_write|transaction", caps.String())
	assert.Same(t, m.Meta(), o.Model(m.Meta()).Meta())
	assert.Panics(t, func() { o.Model(nil) })
}

type base struct {
	ID   string
	Name string `db:"title"`
}

type shadowed struct {
	base
	Title  string
	Tags   []string
	hidden int
}

func TestInferredMapping(t *testing.T) {
	o := New(nil).(*Orm)
	mp := o.inferred(reflect.TypeOf(shadowed{}))

	names := make([]string, len(mp.cols))
	for i, c := range mp.cols {
		names[i] = c.name
	}
	assert.Equal(t, []string{"id", "title"}, names, "切片与未导出字段不映射")
	assert.Equal(t, []int{1}, mp.cols[mp.byName["title"]].index, "外层字段覆盖内嵌的同名列")
	assert.True(t, mp.cols[mp.byName["id"]].key)
	assert.Same(t, mp, o.inferred(structType(&shadowed{})), "按类型缓存")
}

func TestModel_ScanDestinations(t *testing.T) {
	o, m := setup(t)
	ctx := context.Background()
	model := o.Model(m.Meta())
	require.NoError(t, model.Create(ctx, newNote("n1", "a")))

	var notPtr note
	assert.Error(t, model.First(ctx, notPtr))
	var notSlice note
	assert.Error(t, model.Find(ctx, &notSlice))
	assert.Error(t, model.Create(ctx, newNote("n2", "b"), &base{ID: "x"}), "同一批次类型必须一致")
	assert.ErrorIs(t, model.Create(ctx, (*note)(nil)), errNilEntity)
}
