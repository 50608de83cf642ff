// Package schema 实现实体配置注册表。
//
// 每个实体类型在启动时通过 Register 登记一个类型化的配置函数；Registry.Build
// 为每个类型按约定生成 Builder（列名来自 db 标签或 snake_case，列类型来自 Go 类型），
// 随后调用配置函数。派生配置函数应先显式调用基础配置函数（ConfigureEntity →
// ConfigureAudited → 业务配置），同一属性以最后一次写入为准。
//
// Build 完成后注册表只读，查询无需加锁。
package schema

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

// Column 单列的生效配置。
type Column struct {
	Field     string // Go 字段名
	Name      string // 列名
	Index     []int  // reflect 字段索引路径
	GoType    reflect.Type
	Kind      dialect.ColumnKind
	SQLType   string // 显式列类型；为空时由方言决定
	Key       bool
	Required  bool
	MaxLength int
	Fixed     bool
	Default   string // 原样写入 DDL 的字面量
	Unique    bool
	Indexed   bool
}

// Index 索引定义。Name 为空时在 Build 阶段按 ix_<table>_<columns> 生成。
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Builder 作用于单个实体类型的配置句柄。
//
// 所有方法都不会 panic：误用（未知字段、非法名称等）被记录下来，
// 由 Registry.Build 统一以 ConfigurationError 返回。
type Builder struct {
	typ     reflect.Type
	table   string
	columns []*Column
	byField map[string]*Column
	key     []string
	indexes []*indexDef
	errs    []error
}

type indexDef struct {
	name   string
	fields []string
	unique bool
}

// newBuilder 按约定从结构体推断列。
func newBuilder(t reflect.Type) *Builder {
	b := &Builder{
		typ:     t,
		table:   orm.TableName(reflect.New(t).Interface()),
		byField: make(map[string]*Column),
	}
	b.walk(t, nil)
	return b
}

func (b *Builder) walk(t reflect.Type, prefix []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		// 未导出的内嵌结构体同样展开，其导出字段经提升后可读写
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
			b.walk(f.Type, index)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name, ok := orm.ColumnName(f)
		if !ok {
			continue
		}
		kind, ok := kindOf(f.Type)
		if !ok {
			continue
		}
		col := &Column{
			Field:    f.Name,
			Name:     name,
			Index:    index,
			GoType:   f.Type,
			Kind:     kind,
			Required: f.Type.Kind() != reflect.Ptr,
		}
		// 同名字段以嵌套层级更浅者为准
		if old, exists := b.byField[f.Name]; exists {
			if len(index) < len(old.Index) {
				*old = *col
			}
			continue
		}
		b.columns = append(b.columns, col)
		b.byField[f.Name] = col
	}
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == timeType
}

// kindOf 推断列类别；不能映射为单列的类型（切片、映射、普通结构体）返回 false。
func kindOf(t reflect.Type) (dialect.ColumnKind, bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return dialect.KindTime, true
	}
	switch t.Kind() {
	case reflect.String:
		return dialect.KindString, true
	case reflect.Bool:
		return dialect.KindBool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return dialect.KindInt, true
	case reflect.Float32, reflect.Float64:
		return dialect.KindFloat, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return dialect.KindBytes, true
		}
	case reflect.Struct:
		if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
			return dialect.KindString, true
		}
	}
	return 0, false
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// Type 返回被配置的实体类型。
func (b *Builder) Type() reflect.Type { return b.typ }

// Table 返回当前表名。
func (b *Builder) Table() string { return b.table }

// ToTable 设置表名。
func (b *Builder) ToTable(name string) *Builder {
	if !isIdentifier(name) {
		b.fail("invalid table name %q", name)
		return b
	}
	b.table = name
	return b
}

// HasKey 设置主键字段（Go 字段名），覆盖之前的设置。
func (b *Builder) HasKey(fields ...string) *Builder {
	if len(fields) == 0 {
		b.fail("HasKey requires at least one field")
		return b
	}
	for _, f := range fields {
		if _, ok := b.byField[f]; !ok {
			b.fail("key field %q does not exist on %s", f, b.typ)
			return b
		}
	}
	for _, c := range b.columns {
		c.Key = false
	}
	for _, f := range fields {
		col := b.byField[f]
		col.Key = true
		col.Required = true
	}
	b.key = append([]string(nil), fields...)
	return b
}

// Property 返回字段的配置句柄；字段不存在时记录错误并返回一个不生效的句柄。
func (b *Builder) Property(field string) *PropertyBuilder {
	col, ok := b.byField[field]
	if !ok {
		b.fail("property %q does not exist on %s", field, b.typ)
		return &PropertyBuilder{b: b, col: &Column{Field: field}}
	}
	return &PropertyBuilder{b: b, col: col}
}

// Ignore 移除字段对应的列。
func (b *Builder) Ignore(field string) *Builder {
	col, ok := b.byField[field]
	if !ok {
		b.fail("ignored property %q does not exist on %s", field, b.typ)
		return b
	}
	if col.Key {
		b.fail("key property %q cannot be ignored", field)
		return b
	}
	delete(b.byField, field)
	for i, c := range b.columns {
		if c == col {
			b.columns = append(b.columns[:i], b.columns[i+1:]...)
			break
		}
	}
	return b
}

// HasIndex 声明多列索引；name 为空时自动命名。同名索引以最后一次声明为准。
func (b *Builder) HasIndex(name string, fields ...string) *IndexBuilder {
	def := &indexDef{name: name, fields: append([]string(nil), fields...)}
	if len(fields) == 0 {
		b.fail("index %q has no fields", name)
	}
	for _, f := range fields {
		if _, ok := b.byField[f]; !ok {
			b.fail("index field %q does not exist on %s", f, b.typ)
		}
	}
	if name != "" {
		for i, existing := range b.indexes {
			if existing.name == name {
				b.indexes[i] = def
				return &IndexBuilder{def: def}
			}
		}
	}
	b.indexes = append(b.indexes, def)
	return &IndexBuilder{def: def}
}

// IndexBuilder 索引配置句柄。
type IndexBuilder struct {
	def *indexDef
}

// Unique 标记为唯一索引。
func (ib *IndexBuilder) Unique() *IndexBuilder {
	ib.def.unique = true
	return ib
}

// PropertyBuilder 单个属性的配置句柄，方法可链式调用。
type PropertyBuilder struct {
	b   *Builder
	col *Column
}

// Required 列不可为空。
func (p *PropertyBuilder) Required() *PropertyBuilder {
	p.col.Required = true
	return p
}

// Optional 列可为空；主键列不允许。
func (p *PropertyBuilder) Optional() *PropertyBuilder {
	if p.col.Key {
		p.b.fail("key property %q cannot be optional", p.col.Field)
		return p
	}
	p.col.Required = false
	return p
}

// MaxLength 设置字符串最大长度。
func (p *PropertyBuilder) MaxLength(n int) *PropertyBuilder {
	if n <= 0 {
		p.b.fail("max length of %q must be positive, got %d", p.col.Field, n)
		return p
	}
	if p.col.Kind != dialect.KindString && p.col.GoType != nil {
		p.b.fail("max length applies to string properties only (%q)", p.col.Field)
		return p
	}
	p.col.MaxLength = n
	return p
}

// Fixed 定长字符串（CHAR）。
func (p *PropertyBuilder) Fixed() *PropertyBuilder {
	p.col.Fixed = true
	return p
}

// Type 显式指定列类型，覆盖方言推断。
func (p *PropertyBuilder) Type(sqlType string) *PropertyBuilder {
	p.col.SQLType = sqlType
	return p
}

// Default 设置 DDL 默认值字面量，例如 "'a'"。
func (p *PropertyBuilder) Default(literal string) *PropertyBuilder {
	p.col.Default = literal
	return p
}

// Unique 唯一约束。
func (p *PropertyBuilder) Unique() *PropertyBuilder {
	p.col.Unique = true
	return p
}

// Indexed 为该列建立单列索引。
func (p *PropertyBuilder) Indexed() *PropertyBuilder {
	p.col.Indexed = true
	return p
}

// HasColumnName 修改列名。
func (p *PropertyBuilder) HasColumnName(name string) *PropertyBuilder {
	if !isIdentifier(name) {
		p.b.fail("invalid column name %q for %q", name, p.col.Field)
		return p
	}
	p.col.Name = name
	return p
}

// isIdentifier 仅允许 [A-Za-z_][A-Za-z0-9_]*。
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case i > 0 && ch >= '0' && ch <= '9':
		default:
			return false
		}
	}
	return true
}
