package indicator

import (
	"fmt"

	"orderflow-engine/internal/model"
)

// EnrichConfig 控制 Enrich 计算哪些指标以及各自的参数
// 字段零值会被替换为惯用默认参数，方便 viper 直接反序列化
type EnrichConfig struct {
	SMA     SMAConfig
	EMAFast EMAConfig
	EMASlow EMAConfig
	RSI     RSIConfig
	MACD    MACDConfig
	BBands  BBandsConfig
	VWAP    VWAPConfig
	DSS     DSSConfig
	OBV     ToggleConfig
	CVD     ToggleConfig
}

type SMAConfig struct {
	Active bool
	Window int
}

type EMAConfig struct {
	Active bool
	Span   int
}

type RSIConfig struct {
	Active bool
	Period int
}

type MACDConfig struct {
	Active             bool
	Fast, Slow, Signal int
}

type BBandsConfig struct {
	Active bool
	Window int
	StdDev float64
}

type VWAPConfig struct {
	Active bool
	Window int // <= 0 表示累计口径
}

type DSSConfig struct {
	Active                        bool
	KPeriod, DPeriod, SmoothPeriod int
}

type ToggleConfig struct {
	Active bool
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func defaultFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// Enrich 对一段完成的 Bar 序列批量计算配置启用的指标
// 返回 列名 -> 等长序列 的映射，列名带参数后缀 (如 "SMA_20", "RSI_14", "DSS_K")
// 与单个指标函数一样，Enrich 对短序列从不报错，未定义位置是 NaN
func Enrich(bars []model.Bar, cfg EnrichConfig) map[string][]float64 {
	closes := make([]float64, len(bars))
	deltas := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		deltas[i] = float64(b.BarDelta)
	}

	out := make(map[string][]float64)

	if cfg.SMA.Active {
		w := defaultInt(cfg.SMA.Window, 50)
		out[fmt.Sprintf("SMA_%d", w)] = Sma(closes, w)
	}
	if cfg.EMAFast.Active {
		s := defaultInt(cfg.EMAFast.Span, 20)
		out[fmt.Sprintf("EMA_%d", s)] = Ema(closes, s)
	}
	if cfg.EMASlow.Active {
		s := defaultInt(cfg.EMASlow.Span, 50)
		out[fmt.Sprintf("EMA_%d", s)] = Ema(closes, s)
	}
	if cfg.RSI.Active {
		p := defaultInt(cfg.RSI.Period, 14)
		out[fmt.Sprintf("RSI_%d", p)] = Rsi(closes, p)
	}
	if cfg.MACD.Active {
		fast := defaultInt(cfg.MACD.Fast, 12)
		slow := defaultInt(cfg.MACD.Slow, 26)
		signal := defaultInt(cfg.MACD.Signal, 9)
		macd, signalLine, hist := Macd(closes, fast, slow, signal)
		out[fmt.Sprintf("MACD_%d_%d", fast, slow)] = macd
		out[fmt.Sprintf("Signal_%d", signal)] = signalLine
		out[fmt.Sprintf("Histogram_%d", signal)] = hist
	}
	if cfg.BBands.Active {
		w := defaultInt(cfg.BBands.Window, 20)
		k := defaultFloat(cfg.BBands.StdDev, 2)
		upper, mid, lower := Bollinger(closes, w, k)
		out[fmt.Sprintf("BB_Upper_%d", w)] = upper
		out[fmt.Sprintf("BB_SMA_%d", w)] = mid
		out[fmt.Sprintf("BB_Lower_%d", w)] = lower
	}
	if cfg.VWAP.Active {
		if cfg.VWAP.Window > 0 {
			out[fmt.Sprintf("VWAP_%d", cfg.VWAP.Window)] = Vwap(bars, cfg.VWAP.Window)
		} else {
			out["VWAP"] = Vwap(bars, 0)
		}
	}
	if cfg.DSS.Active {
		k := defaultInt(cfg.DSS.KPeriod, 13)
		d := defaultInt(cfg.DSS.DPeriod, 8)
		smooth := defaultInt(cfg.DSS.SmoothPeriod, 5)
		dssK, dssD := Dss(bars, k, d, smooth)
		out["DSS_K"] = dssK
		out["DSS_D"] = dssD
	}
	if cfg.OBV.Active {
		out["OBV"] = Obv(bars)
	}
	if cfg.CVD.Active {
		out["CVD"] = Cvd(deltas)
	}

	return out
}
