package orm

import (
	"reflect"
	"strings"
	"unicode"
)

// ColumnName 按约定推断结构体字段对应的列名。
//
// 优先使用 db 标签（逗号后的选项被忽略），其次为字段名的 snake_case；
// db:"-" 表示该字段不映射任何列，此时返回 ok=false。
func ColumnName(f reflect.StructField) (name string, ok bool) {
	if tag, has := f.Tag.Lookup("db"); has {
		tag = strings.TrimSpace(strings.Split(tag, ",")[0])
		if tag == "-" {
			return "", false
		}
		if tag != "" {
			return tag, true
		}
	}
	return SnakeCase(f.Name), true
}

// SnakeCase 将 Go 标识符转换为 snake_case，连续大写视为一个缩写词：
// "UserID" → "user_id"，"HTTPStatus" → "http_status"。
func SnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TableName 返回模型的表名：实现了 TableName() 时以其为准，否则为类型名的 snake_case。
func TableName(model any) string {
	if tn, ok := tableNameOf(model); ok {
		return tn
	}
	t := reflect.TypeOf(model)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return SnakeCase(genericBaseName(t.Name()))
}

// genericBaseName 去掉泛型实例化后缀，例如 "Box[int]" → "Box"。
func genericBaseName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

func tableNameOf(model any) (string, bool) {
	if model == nil {
		return "", false
	}
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		v = reflect.New(v.Type().Elem())
	}
	if m, ok := v.Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}
	t := v.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}
	if m, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}
	return "", false
}
