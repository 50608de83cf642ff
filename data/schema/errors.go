package schema

import "fmt"

// ConfigurationError 实体配置失败。
//
// 只在启动阶段产生，属于致命错误：调用方应中止启动，不做重试。
type ConfigurationError struct {
	Entity string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schema: configuring %s: %v", e.Entity, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
