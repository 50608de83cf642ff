package repository

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

// Operator 过滤操作符
type Operator string

const (
	OpEq   Operator = "eq"
	OpNe   Operator = "ne"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// IsValid 是否为已知操作符
func (op Operator) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		return true
	default:
		return false
	}
}

// Condition 单个过滤条件。
//
// Field 可以是列名，也可以是 Go 字段名；仓储会对照实体的 schema 校验并换算为列名。
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Filter 一组以 AND 组合的过滤条件。零值表示不过滤。
type Filter struct {
	Conditions []Condition
}

// NewFilter 创建空过滤器
func NewFilter() Filter { return Filter{} }

// Where 追加任意条件
func (f Filter) Where(field string, op Operator, value any) Filter {
	conds := make([]Condition, len(f.Conditions), len(f.Conditions)+1)
	copy(conds, f.Conditions)
	f.Conditions = append(conds, Condition{Field: field, Op: op, Value: value})
	return f
}

func (f Filter) Eq(field string, v any) Filter  { return f.Where(field, OpEq, v) }
func (f Filter) Ne(field string, v any) Filter  { return f.Where(field, OpNe, v) }
func (f Filter) Gt(field string, v any) Filter  { return f.Where(field, OpGt, v) }
func (f Filter) Gte(field string, v any) Filter { return f.Where(field, OpGte, v) }
func (f Filter) Lt(field string, v any) Filter  { return f.Where(field, OpLt, v) }
func (f Filter) Lte(field string, v any) Filter { return f.Where(field, OpLte, v) }

// Like 包含匹配（%value%）
func (f Filter) Like(field string, v string) Filter { return f.Where(field, OpLike, v) }

// In 集合匹配，values 为空时不匹配任何记录。
func (f Filter) In(field string, values ...any) Filter { return f.Where(field, OpIn, values) }

// IsEmpty 是否没有任何条件
func (f Filter) IsEmpty() bool { return len(f.Conditions) == 0 }

// Validate 校验操作符与取值形状；字段名由仓储对照 schema 校验。
func (f Filter) Validate() error {
	for _, c := range f.Conditions {
		if strings.TrimSpace(c.Field) == "" {
			return domain.NewInvalidFilterError("empty field name")
		}
		if !c.Op.IsValid() {
			return domain.NewInvalidFilterError("unknown operator %q on field %s", c.Op, c.Field)
		}
		switch c.Op {
		case OpIn:
			if _, err := InValues(c.Value); err != nil {
				return domain.NewInvalidFilterError("field %s: %v", c.Field, err)
			}
		case OpLike:
			if _, ok := c.Value.(string); !ok {
				return domain.NewInvalidFilterError("field %s: like expects a string, got %T", c.Field, c.Value)
			}
		default:
			if c.Value == nil {
				return domain.NewInvalidFilterError("field %s: nil value for %s", c.Field, c.Op)
			}
		}
	}
	return nil
}

// InValues 将 In 条件的取值展开为切片。
func InValues(v any) ([]any, error) {
	if vs, ok := v.([]any); ok {
		return vs, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("in expects a slice, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
