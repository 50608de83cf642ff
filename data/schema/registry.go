package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ConfigureFunc 实体配置函数。
type ConfigureFunc func(b *Builder)

type registration struct {
	typ       reflect.Type
	configure ConfigureFunc
	err       error
}

// Registry 实体配置注册表。
//
// 启动阶段通过 Register 登记，Build 一次性构建全部 Model；构建后只读。
type Registry struct {
	mu      sync.Mutex
	entries []registration
	seen    map[reflect.Type]bool

	built    bool
	buildErr error
	models   map[reflect.Type]*Model
	ordered  []*Model
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		seen:   make(map[reflect.Type]bool),
		models: make(map[reflect.Type]*Model),
	}
}

// Register 登记实体类型 T 的配置函数；configure 为 nil 时使用 ConfigureEntity。
//
// T 可以是结构体或结构体指针。登记问题（非结构体、重复登记）在 Build 时以
// ConfigurationError 返回；Build 之后再登记属于编程错误，直接 panic。
func Register[T any](r *Registry, configure ConfigureFunc) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.register(t, configure)
}

func (r *Registry) register(t reflect.Type, configure ConfigureFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		panic(fmt.Sprintf("schema: Register(%s) called after Build", t))
	}
	entry := registration{typ: t, configure: configure}
	switch {
	case t.Kind() != reflect.Struct:
		entry.err = fmt.Errorf("entity type must be a struct, got %s", t.Kind())
	case r.seen[t]:
		entry.err = errors.New("entity type registered more than once")
	}
	r.seen[t] = true
	r.entries = append(r.entries, entry)
}

// Build 按登记顺序构建全部 Model。
//
// 任一配置函数 panic、记录了配置错误或缺少主键时返回 *ConfigurationError，
// 此时注册表不可用。重复调用返回首次构建的结果。
func (r *Registry) Build() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return r.buildErr
	}
	r.built = true

	tables := make(map[string]reflect.Type)
	for _, entry := range r.entries {
		if entry.err != nil {
			r.buildErr = &ConfigurationError{Entity: entry.typ.String(), Cause: entry.err}
			break
		}
		m, err := buildModel(entry.typ, entry.configure)
		if err != nil {
			r.buildErr = &ConfigurationError{Entity: entry.typ.String(), Cause: err}
			break
		}
		if other, dup := tables[m.table]; dup {
			r.buildErr = &ConfigurationError{
				Entity: entry.typ.String(),
				Cause:  fmt.Errorf("table %q is already mapped by %s", m.table, other),
			}
			break
		}
		tables[m.table] = entry.typ
		r.models[entry.typ] = m
		r.ordered = append(r.ordered, m)
	}
	if r.buildErr != nil {
		r.models = make(map[reflect.Type]*Model)
		r.ordered = nil
	}
	return r.buildErr
}

// buildModel 约定推断 → 配置函数 → 校验。
func buildModel(t reflect.Type, configure ConfigureFunc) (m *Model, err error) {
	b := newBuilder(t)
	if configure == nil {
		configure = ConfigureEntity
	}

	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("configuration hook panicked: %v", p)
			}
		}()
		configure(b)
	}()
	if err != nil {
		return nil, err
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.key) == 0 {
		return nil, errors.New("no key configured")
	}
	return b.finish()
}

func (b *Builder) finish() (*Model, error) {
	m := &Model{
		typ:    b.typ,
		table:  b.table,
		lookup: make(map[string]int, len(b.columns)*2),
	}
	for i, c := range b.columns {
		if prev, dup := m.lookup[c.Name]; dup {
			return nil, fmt.Errorf("column %q is mapped by both %s and %s", c.Name, m.columns[prev].Field, c.Field)
		}
		col := *c
		col.Index = append([]int(nil), c.Index...)
		m.columns = append(m.columns, col)
		m.lookup[c.Name] = i
	}
	for i, c := range m.columns {
		if _, taken := m.lookup[c.Field]; !taken {
			m.lookup[c.Field] = i
		}
	}
	for _, f := range b.key {
		m.key = append(m.key, b.byField[f].Name)
	}

	names := make(map[string]bool)
	addIndex := func(ix Index) {
		if names[ix.Name] {
			return
		}
		names[ix.Name] = true
		m.indexes = append(m.indexes, ix)
	}
	for _, c := range m.columns {
		if c.Indexed && !c.Key {
			addIndex(Index{Name: indexName(m.table, []string{c.Name}), Columns: []string{c.Name}})
		}
	}
	for _, def := range b.indexes {
		cols := make([]string, len(def.fields))
		for i, f := range def.fields {
			col, ok := b.byField[f]
			if !ok {
				return nil, fmt.Errorf("index field %q was ignored", f)
			}
			cols[i] = col.Name
		}
		name := def.name
		if name == "" {
			name = indexName(m.table, cols)
		}
		addIndex(Index{Name: name, Columns: cols, Unique: def.unique})
	}
	sort.SliceStable(m.indexes, func(i, j int) bool { return m.indexes[i].Name < m.indexes[j].Name })

	m.meta = m.buildMeta()
	return m, nil
}

func indexName(table string, columns []string) string {
	return "ix_" + table + "_" + strings.Join(columns, "_")
}

// Model 返回类型对应的 Model；未构建或未登记时返回 false。
func (r *Registry) Model(t reflect.Type) (*Model, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.Lock()
	built := r.built
	r.mu.Unlock()
	if !built || t == nil {
		return nil, false
	}
	m, ok := r.models[t]
	return m, ok
}

// Models 按登记顺序返回全部 Model。
func (r *Registry) Models() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Model(nil), r.ordered...)
}

// ModelFor 返回实体类型 T（结构体或其指针）的 Model。
func ModelFor[T any](r *Registry) (*Model, bool) {
	return r.Model(reflect.TypeOf((*T)(nil)).Elem())
}
