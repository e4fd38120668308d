package model

import "fmt"

// ConfigurationError 表示构造期的配置错误 (非法周期字符串、未知的方向推断策略等)
// 只在构造时返回一次，绝不会在数据流中途抛出
type ConfigurationError struct {
	Field  string // 出错的配置项
	Value  string // 传入的原始值
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%q (%s)", e.Field, e.Value, e.Reason)
}

// DataError 表示单笔 Tick 数据不合法 (缺时间戳、价格非正、负成交量等)
// 默认策略是记日志后跳过该笔；Strict 模式下由调用方决定是否中止
type DataError struct {
	Reason string
	Tick   Tick
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s (ts=%s price=%v volume=%d)",
		e.Reason, e.Tick.Timestamp, e.Tick.Price, e.Tick.Volume)
}
