package model

import "time"

// Tick 代表最小粒度的市场数据（一笔成交）
// 由外部的 Loader/Connector 归一化后传入，核心层不做任何文件/列格式解析
type Tick struct {
	Timestamp time.Time // 成交时间 (必须带时区)
	Price     float64   // 成交价格
	Volume    int64     // 成交量 (>= 0)
	Bid       float64   // L1 买一价 (0 表示缺失)
	Ask       float64   // L1 卖一价 (0 表示缺失)
	Flags     string    // 方向标记 (空字符串表示缺失，例如 "buy"/"sell" 或交易所原始 flag)
}

// LevelStats 记录单个价位上的买卖盘成交量分布
// 不变量: TotalVolume == BidVolume + AskVolume, Delta == AskVolume - BidVolume
type LevelStats struct {
	BidVolume   int64 // 卖方主动 (成交打在 Bid 一侧) 的量
	AskVolume   int64 // 买方主动 (成交打在 Ask 一侧) 的量
	TotalVolume int64
	Delta       int64
}

// Apply 将一笔已分类的成交折叠进该价位
func (ls *LevelStats) Apply(volume int64, isBuyerInitiated bool) {
	ls.TotalVolume += volume
	if isBuyerInitiated {
		ls.AskVolume += volume
		ls.Delta += volume
	} else {
		ls.BidVolume += volume
		ls.Delta -= volume
	}
}

// PriceLadder 价格阶梯: 价位 -> 该价位的订单流统计
// 价位 key 不做任何隐式舍入
type PriceLadder map[float64]*LevelStats

// Bar 代表聚合后的一根 K 线，附带订单流指标
// 仅由聚合器的 finalize 阶段构造，发出后不再修改
type Bar struct {
	Symbol   string // 所属交易对
	Interval string // 周期，例如 "1min", "5min", "1H"

	Start  time.Time // 对齐后的 K 线起始时间
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	Ladder PriceLadder // 本 Bar 内的价格阶梯

	// 订单流衍生指标，finalize 时从 Ladder 汇总
	BarDelta       int64   // AskVolumeTotal - BidVolumeTotal
	POCPrice       float64 // Point of Control: 成交量最大的价位 (平手取最低价)
	POIPrice       float64 // Point of Interest: 非零成交量最小的价位 (平手取最低价)
	BidVolumeTotal int64
	AskVolumeTotal int64
}
