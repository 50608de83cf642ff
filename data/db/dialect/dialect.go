// Package dialect 描述各数据库在占位符、标识符引号、行锁、唯一键错误与列类型上的差异。
package dialect

import (
	"strconv"
	"strings"

	core "github.com/tbarracha/Spirekit-sub001/data/db"
)

// Name 标准化的方言名
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// ColumnKind 与方言无关的列类别
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
)

type profile struct {
	quote            byte // 0 表示不加引号
	numbered         bool // 占位符写成 $1, $2...
	forUpdate        bool
	indexIfNotExists bool
	uniqueMarkers    []string // 唯一约束冲突错误信息中的特征片段（小写）
	types            map[ColumnKind]string
	defaultString    string // 未限定长度的字符串列
}

var profiles = map[Name]profile{
	NameMySQL: {
		quote:         '`',
		forUpdate:     true,
		uniqueMarkers: []string{"duplicate entry", "duplicate key"},
		types: map[ColumnKind]string{
			KindInt: "BIGINT", KindFloat: "DOUBLE", KindBool: "TINYINT(1)",
			KindTime: "DATETIME(6)", KindBytes: "BLOB",
		},
		defaultString: "VARCHAR(255)",
	},
	NameSQLite: {
		quote:            '"',
		indexIfNotExists: true,
		uniqueMarkers:    []string{"unique constraint failed"},
		// DATETIME 声明让驱动把文本解析回 time.Time
		types: map[ColumnKind]string{
			KindInt: "INTEGER", KindFloat: "REAL", KindBool: "BOOLEAN",
			KindTime: "DATETIME", KindBytes: "BLOB",
		},
		defaultString: "TEXT",
	},
	NamePostgres: {
		quote:            '"',
		numbered:         true,
		forUpdate:        true,
		indexIfNotExists: true,
		uniqueMarkers:    []string{"duplicate key", "unique constraint"},
		types: map[ColumnKind]string{
			KindInt: "BIGINT", KindFloat: "DOUBLE PRECISION", KindBool: "BOOLEAN",
			KindTime: "TIMESTAMPTZ", KindBytes: "BYTEA",
		},
		defaultString: "TEXT",
	},
	NameUnknown: {
		uniqueMarkers: []string{"duplicate key", "unique constraint"},
		types: map[ColumnKind]string{
			KindInt: "BIGINT", KindFloat: "DOUBLE", KindBool: "BOOLEAN",
			KindTime: "DATETIME", KindBytes: "BLOB",
		},
		defaultString: "TEXT",
	},
}

var aliases = map[string]Name{
	"mysql":      NameMySQL,
	"sqlite":     NameSQLite,
	"sqlite3":    NameSQLite,
	"postgres":   NamePostgres,
	"postgresql": NamePostgres,
	"pgx":        NamePostgres,
}

// Dialect 零值为 unknown 方言
type Dialect struct {
	name Name
}

// New 按驱动名或方言名构造，大小写不敏感，无法识别时为 unknown
func New(name string) Dialect {
	return Dialect{name: aliases[strings.ToLower(strings.TrimSpace(name))]}
}

// FromDatabase db 实现了 IDialectNameProvider 时按其名称推断，否则为 unknown
func FromDatabase(db core.IDatabase) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{}
}

func (d Dialect) Name() Name       { return d.name }
func (d Dialect) profile() profile { return profiles[d.name] }

func (d Dialect) SupportsForUpdate() bool        { return d.profile().forUpdate }
func (d Dialect) SupportsIndexIfNotExists() bool { return d.profile().indexIfNotExists }

// QuoteIdentifier 对 schema.table 形式逐段加引号，不校验标识符本身。
// unknown 方言原样返回。
func (d Dialect) QuoteIdentifier(name string) string {
	q := d.profile().quote
	if q == 0 || name == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = string(q) + p + string(q)
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 把 ? 改写为方言的占位符。
//
// 只做字符扫描，字符串字面量里的 ? 也会被替换；值一律走参数即可避免。
func (d Dialect) Rebind(query string) string {
	if !d.profile().numbered || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			sb.WriteByte(query[i])
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// IsUniqueViolation 按错误信息识别唯一键或主键冲突。
// 不依赖具体驱动的错误类型，信息文本随数据库版本或语言设置变化时可能漏判。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range d.profile().uniqueMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// ColumnType 列类别在当前方言下的类型名。
// 字符串列 maxLength > 0 时为 VARCHAR(n)，fixed 时为 CHAR(n)。
func (d Dialect) ColumnType(kind ColumnKind, maxLength int, fixed bool) string {
	p := d.profile()
	if t, ok := p.types[kind]; ok {
		return t
	}
	switch {
	case maxLength > 0 && fixed:
		return "CHAR(" + strconv.Itoa(maxLength) + ")"
	case maxLength > 0:
		return "VARCHAR(" + strconv.Itoa(maxLength) + ")"
	default:
		return p.defaultString
	}
}
