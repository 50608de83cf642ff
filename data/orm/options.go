package orm

import "strings"

// Condition 一个 WHERE 片段，Expr 使用 ? 占位符
type Condition struct {
	Expr string
	Args []any
}

// Sort 排序列
type Sort struct {
	Column string
	Desc   bool
}

// QueryOptions 适配器读取的查询描述，条件之间为 AND
type QueryOptions struct {
	Conditions []Condition
	Sorts      []Sort
	Limit      int
	Offset     int
	Lock       bool
}

// QueryOption 修改 QueryOptions
type QueryOption func(*QueryOptions)

// Where 追加条件，空表达式忽略
func Where(expr string, args ...any) QueryOption {
	return func(o *QueryOptions) {
		if expr != "" {
			o.Conditions = append(o.Conditions, Condition{Expr: expr, Args: args})
		}
	}
}

// In 展开为 column IN (?, ...)。values 为空时匹配不到任何行。
func In(column string, values ...any) QueryOption {
	return func(o *QueryOptions) {
		switch {
		case column == "":
		case len(values) == 0:
			o.Conditions = append(o.Conditions, Condition{Expr: "1 = 0"})
		default:
			expr := column + " IN (?" + strings.Repeat(", ?", len(values)-1) + ")"
			o.Conditions = append(o.Conditions, Condition{Expr: expr, Args: values})
		}
	}
}

// OrderBy 追加排序列，先追加的优先
func OrderBy(column string, desc bool) QueryOption {
	return func(o *QueryOptions) {
		if column != "" {
			o.Sorts = append(o.Sorts, Sort{Column: column, Desc: desc})
		}
	}
}

// Page 设置 LIMIT 与 OFFSET，非正值表示不限制
func Page(limit, offset int) QueryOption {
	return func(o *QueryOptions) {
		o.Limit = max(limit, 0)
		o.Offset = max(offset, 0)
	}
}

// ForUpdate 请求行锁，适配器不具备 CapRowLock 时忽略
func ForUpdate() QueryOption {
	return func(o *QueryOptions) { o.Lock = true }
}

// Collect 依次应用 opts
func Collect(opts ...QueryOption) QueryOptions {
	var qo QueryOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&qo)
		}
	}
	return qo
}
