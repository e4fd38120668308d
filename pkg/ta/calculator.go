package ta

import (
	"fmt"
	"sync"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"orderflow-engine/internal/model"
)

// maxHistoryLen 每个周期最多保留的 Bar 数量，FIFO 淘汰
const maxHistoryLen = 100

// TAData 存储单个周期计算指标所需的历史数据和最新快照
type TAData struct {
	Symbol string
	Close  []float64 // 收盘价序列
	High   []float64 // 最高价序列
	Low    []float64 // 最低价序列
	Volume []float64 // 成交量序列
	Delta  []float64 // 每根 Bar 的订单流 Delta 序列

	// 最新计算出的指标值，供状态机/信号层查询
	MA       float64
	RSI      float64
	BBandsUp float64
	BBandsDn float64
	ATR      float64
	MACD     []float64
	MACDHist []float64
	CVD      float64 // 窗口内累计 Delta

	lastStart int64 // 已纳入的最后一根 Bar 的起始时间 (unix 秒)，用于去重
}

// TACalculator 负责管理所有周期的滚动历史和指标快照
// 纯函数版的指标管道在 internal/indicator；这里是面向策略层的流式快照口径
type TACalculator struct {
	mu            sync.RWMutex
	HistoryMap    map[string]*TAData // Key: K 线周期 (e.g., "1H", "15min")
	MinHistoryLen int                // 计算指标所需的最小历史长度
	Logger        *zap.Logger
}

// NewTACalculator 初始化技术指标计算器
func NewTACalculator(logger *zap.Logger) *TACalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	// MA20 之类的指标至少需要 20 根，预留安全长度
	return &TACalculator{
		HistoryMap:    make(map[string]*TAData),
		MinHistoryLen: 30,
		Logger:        logger,
	}
}

// UpdateBar 纳入一根完成的 Bar 并重新计算该周期的指标快照
// 同一起始时间的 Bar 只纳入一次
func (tc *TACalculator) UpdateBar(bar model.Bar) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	taData, ok := tc.HistoryMap[bar.Interval]
	if !ok {
		taData = &TAData{
			Symbol: bar.Symbol,
			Close:  make([]float64, 0, maxHistoryLen),
			High:   make([]float64, 0, maxHistoryLen),
			Low:    make([]float64, 0, maxHistoryLen),
			Volume: make([]float64, 0, maxHistoryLen),
			Delta:  make([]float64, 0, maxHistoryLen),
		}
		tc.HistoryMap[bar.Interval] = taData
		tc.Logger.Debug("Initialized TA history for interval",
			zap.String("Interval", bar.Interval))
	}

	start := bar.Start.Unix()
	if len(taData.Close) > 0 && taData.lastStart == start {
		return
	}
	taData.lastStart = start

	taData.Close = append(taData.Close, bar.Close)
	taData.High = append(taData.High, bar.High)
	taData.Low = append(taData.Low, bar.Low)
	taData.Volume = append(taData.Volume, float64(bar.Volume))
	taData.Delta = append(taData.Delta, float64(bar.BarDelta))

	if len(taData.Close) > maxHistoryLen {
		taData.Close = taData.Close[len(taData.Close)-maxHistoryLen:]
		taData.High = taData.High[len(taData.High)-maxHistoryLen:]
		taData.Low = taData.Low[len(taData.Low)-maxHistoryLen:]
		taData.Volume = taData.Volume[len(taData.Volume)-maxHistoryLen:]
		taData.Delta = taData.Delta[len(taData.Delta)-maxHistoryLen:]
	}

	if len(taData.Close) < tc.MinHistoryLen {
		tc.Logger.Debug("Not enough history for calculation",
			zap.String("Interval", bar.Interval), zap.Int("Len", len(taData.Close)))
		return
	}

	tc.calculate(taData)
}

// calculate 集中计算所有需要的指标快照
func (tc *TACalculator) calculate(taData *TAData) {
	closePrices := taData.Close

	// --- 均线 (MA 20) ---
	maResult := talib.Sma(closePrices, 20)
	taData.MA = maResult[len(maResult)-1]

	// --- 相对强弱指数 (RSI 14) ---
	rsiResult := talib.Rsi(closePrices, 14)
	taData.RSI = rsiResult[len(rsiResult)-1]

	// --- 布林带 (BBands 20, 2) ---
	bbandsUp, _, bbandsDn := talib.BBands(closePrices, 20, 2, 2, talib.SMA)
	taData.BBandsUp = bbandsUp[len(bbandsUp)-1]
	taData.BBandsDn = bbandsDn[len(bbandsDn)-1]

	// MACD
	macd, _, hist := talib.Macd(closePrices, 12, 26, 9)
	taData.MACD = macd
	taData.MACDHist = hist

	// --- 平均真实波动范围 (ATR 14) ---
	atrResult := talib.Atr(taData.High, taData.Low, closePrices, 14)
	taData.ATR = atrResult[len(atrResult)-1]

	// --- 窗口内累计订单流 Delta ---
	cvd := 0.0
	for _, d := range taData.Delta {
		cvd += d
	}
	taData.CVD = cvd
}

// GetTAData 供策略层查询特定周期的指标快照
func (tc *TACalculator) GetTAData(interval string) (*TAData, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	taData, ok := tc.HistoryMap[interval]
	if !ok || len(taData.Close) < tc.MinHistoryLen {
		return nil, fmt.Errorf("TA data not available or history too short for interval %s", interval)
	}
	return taData, nil
}
