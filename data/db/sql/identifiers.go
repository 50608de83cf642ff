package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
)

// identPattern 单个标识符或以点分隔的限定名（schema.table）
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// isSafeIdentifier 只接受 ASCII 字母、数字与下划线组成的标识符，
// 空格、引号、分号等一律拒绝。
func isSafeIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// mustQuote 校验后按方言加引号；非法标识符属于编程错误，直接 panic。
func mustQuote(d dialect.Dialect, kind, name string) string {
	if !isSafeIdentifier(name) {
		panic(fmt.Sprintf("sql: unsafe %s name %q", kind, name))
	}
	return d.QuoteIdentifier(name)
}

func mustQuoteAll(d dialect.Dialect, kind string, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = mustQuote(d, kind, n)
	}
	return strings.Join(quoted, ", ")
}

// placeholders 生成 "?, ?, ?"
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// conditions 以 AND 连接的条件片段及其参数
type conditions struct {
	exprs []string
	args  []any
}

func (c *conditions) add(expr string, args []any) {
	if expr == "" {
		return
	}
	c.exprs = append(c.exprs, expr)
	c.args = append(c.args, args...)
}

// writeTo 写入 " WHERE ..." 并返回追加参数后的切片
func (c *conditions) writeTo(sb *strings.Builder, args []any) []any {
	if len(c.exprs) == 0 {
		return args
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(c.exprs, " AND "))
	return append(args, c.args...)
}
