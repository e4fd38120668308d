// Package indicator 提供对完成 Bar 序列的纯函数指标计算
//
// 所有函数都是全量计算: 输入一段等间隔的序列，输出等长的结果切片
// 历史长度不足的位置用 math.NaN() 表示 "未定义"，绝不猜测，绝不 panic
// 输入中的 NaN 视为缺口: 跳过，不污染平滑状态
package indicator

import (
	"math"

	"orderflow-engine/internal/model"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Sma 简单移动平均，窗口未满或窗口内有缺口的位置为 NaN
func Sma(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// Ema 指数移动平均 (adjust=false 递推: y_t = (1-α)·y_{t-1} + α·x_t, α = 2/(span+1))
// 递推从首个有效值启动，累计满 span 个有效观测后才开始输出
func Ema(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	var ema float64
	count := 0
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if count == 0 {
			ema = v
		} else {
			ema = ema*(1-alpha) + v*alpha
		}
		count++
		if count >= span {
			out[i] = ema
		}
	}
	return out
}

// Rsi 相对强弱指数，Wilder 平滑 (α = 1/period)
// 前 period 个位置未定义
func Rsi(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 1 {
		return out
	}
	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	count := 0
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[i]) || math.IsNaN(values[i-1]) {
			continue
		}
		change := values[i] - values[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)
		if count == 0 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = avgGain*(1-alpha) + gain*alpha
			avgLoss = avgLoss*(1-alpha) + loss*alpha
		}
		count++
		if count >= period {
			rs := avgGain / (avgLoss + 1e-10) // 防除零
			out[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return out
}

// Macd 返回 MACD 线 (EMA(fast)-EMA(slow))、信号线 (对 MACD 线再取 EMA(signal)) 和柱体
func Macd(values []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	n := len(values)
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}

	emaFast := Ema(values, fast)
	emaSlow := Ema(values, slow)
	macd = make([]float64, n)
	for i := 0; i < n; i++ {
		macd[i] = emaFast[i] - emaSlow[i] // 任一侧 NaN 则结果 NaN
	}

	signalLine = Ema(macd, signal)
	hist = make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, hist
}

// Bollinger 布林带: SMA(window) ± k·总体标准差 (ddof=0，与主流交易平台一致)
func Bollinger(values []float64, window int, numStd float64) (upper, mid, lower []float64) {
	n := len(values)
	mid = Sma(values, window)
	upper = nanSlice(n)
	lower = nanSlice(n)
	if window <= 0 || numStd <= 0 {
		return upper, mid, lower
	}
	for i := window - 1; i < n; i++ {
		if math.IsNaN(mid[i]) {
			continue
		}
		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mid[i]
			variance += d * d
		}
		std := math.Sqrt(variance / float64(window))
		upper[i] = mid[i] + numStd*std
		lower[i] = mid[i] - numStd*std
	}
	return upper, mid, lower
}

// Vwap 成交量加权平均价，典型价取 (H+L+C)/3
// window > 0 为滚动窗口；window <= 0 为累计口径，永不自动清零
// 累计口径的换日/换 session 重置是调用方的责任
func Vwap(bars []model.Bar, window int) []float64 {
	n := len(bars)
	out := nanSlice(n)

	tpv := make([]float64, n)
	vol := make([]float64, n)
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3.0
		vol[i] = float64(b.Volume)
		tpv[i] = typical * vol[i]
	}

	if window > 0 {
		for i := window - 1; i < n; i++ {
			var sumTPV, sumVol float64
			for j := i - window + 1; j <= i; j++ {
				sumTPV += tpv[j]
				sumVol += vol[j]
			}
			out[i] = sumTPV / (sumVol + 1e-10)
		}
		return out
	}

	var cumTPV, cumVol float64
	for i := 0; i < n; i++ {
		cumTPV += tpv[i]
		cumVol += vol[i]
		out[i] = cumTPV / (cumVol + 1e-10)
	}
	return out
}

// Dss Bressert 双重平滑随机指标
// 原始 %K = 100·(C-LL(k))/(HH(k)-LL(k))，窗口未满或区间为零时取中性值 50
// DSS_K = EMA(%K, smooth)，DSS_D = EMA(DSS_K, d)
func Dss(bars []model.Bar, kPeriod, dPeriod, smoothPeriod int) (dssK, dssD []float64) {
	n := len(bars)
	if kPeriod <= 0 || dPeriod <= 0 || smoothPeriod <= 0 {
		return nanSlice(n), nanSlice(n)
	}

	raw := make([]float64, n)
	for i := range bars {
		if i < kPeriod-1 {
			raw[i] = 50 // 历史不足，取中性值
			continue
		}
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - kPeriod + 1; j <= i; j++ {
			hh = math.Max(hh, bars[j].High)
			ll = math.Min(ll, bars[j].Low)
		}
		rng := hh - ll
		if rng == 0 {
			raw[i] = 50
			continue
		}
		v := 100 * (bars[i].Close - ll) / rng
		raw[i] = math.Min(math.Max(v, 0), 100)
	}

	dssK = Ema(raw, smoothPeriod)
	dssD = Ema(dssK, dPeriod)
	return dssK, dssD
}

// Obv 能量潮: 按收盘价变化方向给成交量加符号后累计
// 首根 Bar 与收平的 Bar 贡献为零
func Obv(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	cum := 0.0
	for i := range bars {
		if i > 0 {
			switch {
			case bars[i].Close > bars[i-1].Close:
				cum += float64(bars[i].Volume)
			case bars[i].Close < bars[i-1].Close:
				cum -= float64(bars[i].Volume)
			}
		}
		out[i] = cum
	}
	return out
}

// Cvd 累计订单流 Delta
// deltas 为 nil 表示上游没有 Delta 数据，返回 nil 作为显式的 "no data"，绝不悄悄补零
// 序列内部的 NaN 按 0 处理
func Cvd(deltas []float64) []float64 {
	if deltas == nil {
		return nil
	}
	out := make([]float64, len(deltas))
	cum := 0.0
	for i, d := range deltas {
		if !math.IsNaN(d) {
			cum += d
		}
		out[i] = cum
	}
	return out
}
