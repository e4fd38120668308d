package engine

import (
	"math"
	"sort"

	"orderflow-engine/internal/model"
)

// accumulate 将一笔已分类的成交折叠进价格阶梯
// 价位首次出现时建档；不变量: 折叠完所有 Tick 后 Σ level.TotalVolume == bar.Volume
func accumulate(ladder model.PriceLadder, price float64, volume int64, isBuyerInitiated bool) {
	ls, ok := ladder[price]
	if !ok {
		ls = &model.LevelStats{}
		ladder[price] = ls
	}
	ls.Apply(volume, isBuyerInitiated)
}

// ladderMetrics 从完整的价格阶梯汇总 Bar 级订单流指标
// POC 取成交量最大的价位，POI 取非零成交量最小的价位
// 平手时一律取最低价: 按升序遍历配合严格比较，结果与 map 遍历顺序无关
func ladderMetrics(ladder model.PriceLadder) (barDelta, bidTotal, askTotal int64, poc, poi float64) {
	prices := make([]float64, 0, len(ladder))
	for p := range ladder {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	maxVol := int64(-1)
	minVol := int64(math.MaxInt64)
	for _, p := range prices {
		ls := ladder[p]
		bidTotal += ls.BidVolume
		askTotal += ls.AskVolume
		barDelta += ls.Delta

		if ls.TotalVolume > maxVol {
			maxVol = ls.TotalVolume
			poc = p
		}
		if ls.TotalVolume > 0 && ls.TotalVolume < minVol {
			minVol = ls.TotalVolume
			poi = p
		}
	}
	return barDelta, bidTotal, askTotal, poc, poi
}
