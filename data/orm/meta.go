package orm

// FieldMeta 描述字段元信息。
//
// Index 为 reflect 字段索引路径（支持内嵌结构体），为空时适配器按列名自行解析。
type FieldMeta struct {
	Name          string
	Column        string
	Index         []int
	Type          string
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	Indexes       []string
	MaxLength     int
	DefaultValue  string
	Tags          map[string]string
}

// ModelMeta 描述模型级别元信息。
// Tags 可用于存放原始标签内容，由适配器解析。
type ModelMeta struct {
	Model  any
	Table  string
	Fields []FieldMeta
	Tags   map[string]string
}

// Tag 返回模型级别的标签内容。
func (m *ModelMeta) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[key]
}

// PrimaryKeys 返回主键列名（按声明顺序）。
func (m *ModelMeta) PrimaryKeys() []string {
	if m == nil {
		return nil
	}
	var keys []string
	for _, f := range m.Fields {
		if f.PrimaryKey {
			keys = append(keys, f.Column)
		}
	}
	return keys
}

// Field 按列名或 Go 字段名查找字段。
func (m *ModelMeta) Field(name string) (FieldMeta, bool) {
	if m == nil {
		return FieldMeta{}, false
	}
	for _, f := range m.Fields {
		if f.Column == name || f.Name == name {
			return f, true
		}
	}
	return FieldMeta{}, false
}

// Columns 返回全部列名。
func (m *ModelMeta) Columns() []string {
	if m == nil {
		return nil
	}
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}
