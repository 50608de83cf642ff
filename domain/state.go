package domain

import (
	"database/sql/driver"
	"fmt"
)

// State 实体生命周期状态。
//
// 持久化为单个 ASCII 字符，与既有数据库保持兼容：
//   - a = Active
//   - i = Inactive
//   - d = Deleted（终态）
//
// 零值 "" 表示“未设置”，在创建时被规范化为 Active。
type State string

const (
	StateUnset    State = ""
	StateActive   State = "a"
	StateInactive State = "i"
	StateDeleted  State = "d"
)

// ParseState 将磁盘编码解析为 State，未知编码返回错误。
func ParseState(code string) (State, error) {
	s := State(code)
	if !s.IsValid() {
		return StateUnset, fmt.Errorf("invalid state code %q", code)
	}
	return s, nil
}

// IsValid 是否为三种已定义状态之一（不含零值）。
func (s State) IsValid() bool {
	switch s {
	case StateActive, StateInactive, StateDeleted:
		return true
	default:
		return false
	}
}

// IsTerminal Deleted 为终态。
func (s State) IsTerminal() bool { return s == StateDeleted }

// String 返回可读名称，便于日志输出。
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDeleted:
		return "deleted"
	case StateUnset:
		return "unset"
	default:
		return "unknown(" + string(s) + ")"
	}
}

// Code 返回磁盘编码。
func (s State) Code() string { return string(s) }

// Value 实现 driver.Valuer：只允许写入合法编码。
func (s State) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("refusing to persist invalid state %q", string(s))
	}
	return string(s), nil
}

// Scan 实现 sql.Scanner。
func (s *State) Scan(src any) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	case nil:
		return fmt.Errorf("state column is NULL")
	default:
		return fmt.Errorf("unsupported state column type %T", src)
	}
	parsed, err := ParseState(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// transitions 生命周期状态机的合法迁移表。未列出的迁移一律拒绝。
var transitions = map[State][]State{
	StateActive:   {StateInactive, StateDeleted},
	StateInactive: {StateDeleted},
	StateDeleted:  nil,
}

// CanTransition 判断 from → to 是否为合法迁移。
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 全函数：合法迁移返回目标状态，其余情况（含离开 Deleted、自迁移、
// Inactive → Active）一律返回 *TransitionError。
func Transition(from, to State) (State, error) {
	if !to.IsValid() {
		return from, NewTransitionError(nil, from, to)
	}
	if !CanTransition(from, to) {
		return from, NewTransitionError(nil, from, to)
	}
	return to, nil
}
