package basic

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

// column 结构体字段与列的对应
type column struct {
	name    string
	index   []int
	key     bool
	autoInc bool
}

// mapping 结构体类型的全部列，同名列只保留嵌套最浅的字段
type mapping struct {
	typ    reflect.Type
	cols   []column
	byName map[string]int
}

func newMapping(t reflect.Type) *mapping {
	return &mapping{typ: t, byName: make(map[string]int)}
}

func (mp *mapping) add(c column) {
	if i, ok := mp.byName[c.name]; ok {
		if len(c.index) < len(mp.cols[i].index) {
			mp.cols[i] = c
		}
		return
	}
	mp.byName[c.name] = len(mp.cols)
	mp.cols = append(mp.cols, c)
}

// insertable 自增主键由数据库生成，不参与 INSERT
func (mp *mapping) insertable() []column {
	return slices.DeleteFunc(slices.Clone(mp.cols), func(c column) bool { return c.key && c.autoInc })
}

// mappingFromMeta 任一字段缺少索引路径时返回 nil，交由推断
func mappingFromMeta(meta *orm.ModelMeta) *mapping {
	t := structType(meta.Model)
	if t == nil || len(meta.Fields) == 0 {
		return nil
	}
	mp := newMapping(t)
	for _, f := range meta.Fields {
		if len(f.Index) == 0 || f.Column == "" {
			return nil
		}
		mp.add(column{name: f.Column, index: f.Index, key: f.PrimaryKey, autoInc: f.AutoIncrement})
	}
	return mp
}

// inferred 按 db 标签与命名约定推断，结果按类型缓存
func (o *Orm) inferred(t reflect.Type) *mapping {
	if mp, ok := o.mappings.Load(t); ok {
		return mp.(*mapping)
	}
	mp := newMapping(t)
	collect(t, nil, mp)
	actual, _ := o.mappings.LoadOrStore(t, mp)
	return actual.(*mapping)
}

func collect(t reflect.Type, path []int, mp *mapping) {
	for i := range t.NumField() {
		f := t.Field(i)
		idx := append(slices.Clone(path), i)
		ft := deref(f.Type)
		switch {
		case f.Anonymous && ft.Kind() == reflect.Struct && !isScalar(ft):
			// 内嵌结构体（例如 entity.Entity）展开；未导出的指针内嵌无法分配，跳过
			if f.IsExported() || f.Type.Kind() == reflect.Struct {
				collect(ft, idx, mp)
			}
		case !f.IsExported():
		case isScalar(ft):
			if name, ok := orm.ColumnName(f); ok {
				mp.add(column{name: name, index: idx, key: name == "id"})
			}
		}
	}
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// isScalar 能直接作为一列读写的类型：基本类型、[]byte、time.Time 与 driver.Valuer
func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t == timeType || t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType)
	}
	return false
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// structType v 的底层结构体类型，不是结构体时返回 nil
func structType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	if t = deref(t); t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

var errNilEntity = errors.New("basic: entity is nil")

func structValue(entity any) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errNilEntity
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("basic: %T is not a struct", entity)
	}
	return v, nil
}

// fieldAt 途经 nil 指针时返回无效值
func fieldAt(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(i)
	}
	return v
}

func values(v reflect.Value, cols []column) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		if fv := fieldAt(v, c.index); fv.IsValid() {
			out[i] = fv.Interface()
		}
	}
	return out
}

// scanRow 把当前行写入 dest（*struct）。未映射的列读入丢弃位，
// 指针字段（*string 等）由 database/sql 分配或置 nil。
func (m *model) scanRow(rows dbcore.IRows, dest any) error {
	if reflect.ValueOf(dest).Kind() != reflect.Pointer {
		return fmt.Errorf("basic: scan destination %T is not a pointer", dest)
	}
	v, err := structValue(dest)
	if err != nil {
		return err
	}
	mp, err := m.mappingOf(dest)
	if err != nil {
		return err
	}
	names, err := rows.Columns()
	if err != nil {
		return err
	}
	targets := make([]any, len(names))
	for i, name := range names {
		var fv reflect.Value
		if j, ok := mp.byName[name]; ok {
			fv = fieldAt(v, mp.cols[j].index)
		}
		if fv.IsValid() && fv.CanSet() {
			targets[i] = fv.Addr().Interface()
		} else {
			targets[i] = new(any)
		}
	}
	return rows.Scan(targets...)
}

// scanAll dest 为 *[]T 或 *[]*T
func (m *model) scanAll(rows dbcore.IRows, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("basic: scan destination %T is not a pointer to slice", dest)
	}
	slice := rv.Elem()
	elem := slice.Type().Elem()
	byPtr := elem.Kind() == reflect.Pointer
	if byPtr {
		elem = elem.Elem()
	}
	for rows.Next() {
		item := reflect.New(elem)
		if err := m.scanRow(rows, item.Interface()); err != nil {
			return err
		}
		if byPtr {
			slice.Set(reflect.Append(slice, item))
		} else {
			slice.Set(reflect.Append(slice, item.Elem()))
		}
	}
	return rows.Err()
}
