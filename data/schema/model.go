package schema

import (
	"reflect"

	"github.com/tbarracha/Spirekit-sub001/data/orm"
)

// Model 单个实体类型构建完成后的只读配置。
type Model struct {
	typ     reflect.Type
	table   string
	columns []Column
	lookup  map[string]int
	key     []string
	indexes []Index
	meta    *orm.ModelMeta
}

// Type 返回实体的结构体类型。
func (m *Model) Type() reflect.Type { return m.typ }

// Table 返回表名。
func (m *Model) Table() string { return m.table }

// Columns 返回全部列（副本）。
func (m *Model) Columns() []Column {
	out := make([]Column, len(m.columns))
	copy(out, m.columns)
	return out
}

// Column 按列名或 Go 字段名查找列。
func (m *Model) Column(name string) (Column, bool) {
	i, ok := m.lookup[name]
	if !ok {
		return Column{}, false
	}
	return m.columns[i], true
}

// Key 返回主键列名。
func (m *Model) Key() []string { return append([]string(nil), m.key...) }

// Indexes 返回索引定义（含单列 Indexed 生成的索引）。
func (m *Model) Indexes() []Index {
	out := make([]Index, len(m.indexes))
	copy(out, m.indexes)
	return out
}

// Meta 返回供 ORM 适配器使用的模型元信息，多次调用返回同一实例。
func (m *Model) Meta() *orm.ModelMeta { return m.meta }

func (m *Model) buildMeta() *orm.ModelMeta {
	meta := &orm.ModelMeta{
		Model:  reflect.New(m.typ).Interface(),
		Table:  m.table,
		Fields: make([]orm.FieldMeta, 0, len(m.columns)),
	}
	for _, c := range m.columns {
		fm := orm.FieldMeta{
			Name:         c.Field,
			Column:       c.Name,
			Index:        append([]int(nil), c.Index...),
			Type:         c.SQLType,
			PrimaryKey:   c.Key,
			Nullable:     !c.Required,
			Unique:       c.Unique,
			MaxLength:    c.MaxLength,
			DefaultValue: c.Default,
		}
		for _, ix := range m.indexes {
			for _, col := range ix.Columns {
				if col == c.Name {
					fm.Indexes = append(fm.Indexes, ix.Name)
				}
			}
		}
		meta.Fields = append(meta.Fields, fm)
	}
	return meta
}
