package engine

import (
	"math"

	"orderflow-engine/internal/model"
)

// SideLogic 是 Tick 方向推断策略的封闭枚举
// 在构造时确定一次，热路径上按枚举分发，不做字符串比较
type SideLogic int

const (
	// SideLeeReadySimple 纯 tick rule: 升价为买方主动，降价为卖方主动，平价继承上一笔的方向
	SideLeeReadySimple SideLogic = iota
	// SideUseFlags 按配置的 flag 值直接映射方向，未命中时退化为 tick rule
	SideUseFlags
	// SideUseL1Quote 按 L1 报价判断: 成交价 >= Ask 为买方主动，<= Bid 为卖方主动
	// 价格落在盘口之间或报价缺失时退化为 tick rule
	SideUseL1Quote
)

func (sl SideLogic) String() string {
	switch sl {
	case SideUseFlags:
		return "use_flags"
	case SideUseL1Quote:
		return "use_l1_quote"
	default:
		return "lee_ready_simple"
	}
}

// ParseSideLogic 解析配置中的策略名，未知名字在构造期报 ConfigurationError
func ParseSideLogic(s string) (SideLogic, error) {
	switch s {
	case "use_flags":
		return SideUseFlags, nil
	case "use_l1_quote":
		return SideUseL1Quote, nil
	case "lee_ready_simple", "":
		return SideLeeReadySimple, nil
	default:
		return 0, &model.ConfigurationError{
			Field: "tick_side_logic", Value: s,
			Reason: "unknown policy, use use_flags/use_l1_quote/lee_ready_simple",
		}
	}
}

// sideState 跟踪单根 Bar 内部的分类状态
// 每根 Bar 开始时重置为零值，方向推断绝不跨越 Bar 边界
type sideState struct {
	hasPrev   bool
	prevPrice float64
	prevBuyer bool
}

// classifier 按选定策略推断每笔成交是买方主动还是卖方主动
type classifier struct {
	logic     SideLogic
	flagsBuy  string // SideUseFlags 时表示买方主动的 flag 值
	flagsSell string
}

// classify 推断一笔成交的方向并推进 Bar 内状态
// 所有策略的兜底都是 tick rule；本 Bar 第一笔在无法判断时默认买方主动
func (c *classifier) classify(t model.Tick, st *sideState) bool {
	buyer, decided := c.tryClassify(t, st)
	if !decided {
		buyer = tickRule(t.Price, st)
	}
	st.hasPrev = true
	st.prevPrice = t.Price
	st.prevBuyer = buyer
	return buyer
}

// tryClassify 按首选依据 (flags 或 L1 报价) 判断方向
// 依据缺失或无法判定时返回 decided=false，由调用方透明退化到 tick rule
func (c *classifier) tryClassify(t model.Tick, st *sideState) (buyer bool, decided bool) {
	switch c.logic {
	case SideUseFlags:
		if t.Flags != "" {
			if c.flagsBuy != "" && t.Flags == c.flagsBuy {
				return true, true
			}
			if c.flagsSell != "" && t.Flags == c.flagsSell {
				return false, true
			}
		}
		return false, false

	case SideUseL1Quote:
		if validQuote(t.Bid) && validQuote(t.Ask) {
			if t.Price >= t.Ask {
				return true, true
			}
			if t.Price <= t.Bid {
				return false, true
			}
		}
		return false, false

	default: // SideLeeReadySimple
		return false, false
	}
}

// tickRule 根据 Bar 内上一笔成交价推断方向
// 平价继承上一笔的分类；本 Bar 第一笔默认为买方主动
func tickRule(price float64, st *sideState) bool {
	if !st.hasPrev {
		return true
	}
	if price > st.prevPrice {
		return true
	}
	if price < st.prevPrice {
		return false
	}
	return st.prevBuyer
}

func validQuote(q float64) bool {
	return q > 0 && !math.IsNaN(q) && !math.IsInf(q, 0)
}
