package engine

import (
	"strings"
	"time"
	"unicode"

	"orderflow-engine/internal/model"
)

// BarInterval 是解析后的 K 线周期
// Label 保留原始写法 (如 "5min")，Duration 用于边界计算
type BarInterval struct {
	Label    string
	Duration time.Duration
}

// ParseInterval 将周期字符串解析为 BarInterval
// 支持 "1min"/"5min"/"15m"/"30s"/"1H"/"4H"/"1D" 这类 数字+单位 的写法
// 非法格式在构造期立即报 ConfigurationError，绝不拖到数据流中途
func ParseInterval(s string) (BarInterval, error) {
	var numPart, unitPart strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			numPart.WriteRune(r)
		case unicode.IsLetter(r):
			unitPart.WriteRune(r)
		}
	}

	if numPart.Len() == 0 {
		return BarInterval{}, &model.ConfigurationError{
			Field: "bar_interval", Value: s, Reason: "no numeric part",
		}
	}

	num := 0
	for _, r := range numPart.String() {
		num = num*10 + int(r-'0')
	}
	if num <= 0 {
		return BarInterval{}, &model.ConfigurationError{
			Field: "bar_interval", Value: s, Reason: "interval must be positive",
		}
	}

	var unit time.Duration
	switch strings.ToLower(unitPart.String()) {
	case "min", "m", "t":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "s":
		unit = time.Second
	case "d":
		unit = 24 * time.Hour
	default:
		return BarInterval{}, &model.ConfigurationError{
			Field: "bar_interval", Value: s, Reason: "unsupported unit, use Xmin/XH/Xs/XD",
		}
	}

	return BarInterval{Label: s, Duration: time.Duration(num) * unit}, nil
}

// AlignBarStart 将时间戳对齐到所属 K 线的起始时间
// 对齐是锚定在日历上的，而不是锚定在第一笔 Tick 上:
// 日线取当天零点，小时线按小时倍数在当天内取整，分钟线在小时内取整，秒线在分钟内取整
// 纯函数且幂等: [S, S+interval) 内的任何时间戳都映射到同一个 S
func AlignBarStart(ts time.Time, interval time.Duration) time.Time {
	loc := ts.Location()
	y, mon, day := ts.Date()

	switch {
	case interval >= 24*time.Hour:
		return time.Date(y, mon, day, 0, 0, 0, 0, loc)
	case interval >= time.Hour:
		n := int(interval / time.Hour)
		return time.Date(y, mon, day, (ts.Hour()/n)*n, 0, 0, 0, loc)
	case interval >= time.Minute:
		n := int(interval / time.Minute)
		return time.Date(y, mon, day, ts.Hour(), (ts.Minute()/n)*n, 0, 0, loc)
	default:
		n := int(interval / time.Second)
		if n <= 0 {
			n = 1
		}
		return time.Date(y, mon, day, ts.Hour(), ts.Minute(), (ts.Second()/n)*n, 0, loc)
	}
}
