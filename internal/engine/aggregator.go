package engine

import (
	"math"
	"time"

	"go.uber.org/zap"

	"orderflow-engine/internal/model"
)

// AggregatorConfig 是单个 BarAggregator 实例的构造参数
// Interval 与 TickSideLogic 在构造时校验，失败返回 ConfigurationError
type AggregatorConfig struct {
	Symbol         string
	Interval       string // 例如 "1min", "5min", "1H"
	TickSideLogic  string // use_flags | use_l1_quote | lee_ready_simple
	FlagsBuyValue  string
	FlagsSellValue string
	Strict         bool // true 时脏 Tick 直接返回 DataError，false 时记日志后丢弃
}

// BarAggregator 把单符号单周期的 Tick 流聚合成带订单流指标的 Bar
//
// 两个状态: 空闲 (没有进行中的 Bar，barStart 为零值) 和累积中
// 同步、单线程，由调用方保证 Tick 按时间戳非降序喂入
// 缓冲区在每次 finalize 后复用，内存上界由单根 Bar 内的 Tick 数决定，与流的总长度无关
type BarAggregator struct {
	symbol   string
	interval BarInterval
	cls      classifier
	strict   bool
	logger   *zap.Logger

	barStart time.Time    // 当前 Bar 的起始时间，零值表示空闲
	ticks    []model.Tick // 当前 Bar 内已缓冲的 Tick
}

// NewBarAggregator 构造一个聚合器，配置错误在这里一次性暴露
func NewBarAggregator(cfg AggregatorConfig, logger *zap.Logger) (*BarAggregator, error) {
	interval, err := ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}
	logic, err := ParseSideLogic(cfg.TickSideLogic)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BarAggregator{
		symbol:   cfg.Symbol,
		interval: interval,
		cls: classifier{
			logic:     logic,
			flagsBuy:  cfg.FlagsBuyValue,
			flagsSell: cfg.FlagsSellValue,
		},
		strict: cfg.Strict,
		logger: logger,
	}, nil
}

// Interval 返回解析后的聚合周期
func (agg *BarAggregator) Interval() BarInterval {
	return agg.interval
}

// AddTick 喂入一笔 Tick，最多返回一根刚完成的 Bar
// 触发翻转的那笔 Tick 永远计入新 Bar，不计入被返回的那根
//
// Tick 落在当前窗口之后时，新 Bar 锚定到该 Tick 自己的对齐边界:
// 中间完全没有成交的空档周期不会产出零量 Bar
// 迟到的 Tick (时间戳早于当前 Bar 起点) 直接丢弃并告警
func (agg *BarAggregator) AddTick(t model.Tick) (*model.Bar, error) {
	if err := validateTick(t); err != nil {
		if agg.strict {
			return nil, err
		}
		agg.logger.Warn("Dropping malformed tick",
			zap.String("Symbol", agg.symbol), zap.Error(err))
		return nil, nil
	}

	if agg.barStart.IsZero() {
		agg.openBar(t)
		return nil, nil
	}

	if t.Timestamp.Before(agg.barStart) {
		agg.logger.Warn("Dropping out-of-order tick",
			zap.String("Symbol", agg.symbol),
			zap.Time("TickTS", t.Timestamp),
			zap.Time("BarStart", agg.barStart))
		return nil, nil
	}

	var completed *model.Bar
	if !t.Timestamp.Before(agg.barStart.Add(agg.interval.Duration)) {
		completed = agg.finalize()
		agg.openBar(t)
		return completed, nil
	}

	agg.ticks = append(agg.ticks, t)
	return nil, nil
}

// Flush 在流结束时收掉进行中的 Bar
// 哪怕只缓冲了一笔 Tick 也会产出一根合法的 Bar；空闲时返回 nil
func (agg *BarAggregator) Flush() *model.Bar {
	bar := agg.finalize()
	agg.barStart = time.Time{}
	agg.ticks = agg.ticks[:0]
	return bar
}

// openBar 以一笔 Tick 开启新 Bar，起点取该 Tick 的对齐边界
func (agg *BarAggregator) openBar(t model.Tick) {
	agg.barStart = AlignBarStart(t.Timestamp, agg.interval.Duration)
	agg.ticks = agg.ticks[:0]
	agg.ticks = append(agg.ticks, t)
}

// finalize 把当前缓冲的 Tick 结算成一根 Bar，缓冲为空时返回 nil
// 按到达顺序逐笔分类并折叠进价格阶梯；分类状态在 Bar 开头重置
func (agg *BarAggregator) finalize() *model.Bar {
	if len(agg.ticks) == 0 || agg.barStart.IsZero() {
		return nil
	}

	first := agg.ticks[0]
	last := agg.ticks[len(agg.ticks)-1]

	high := math.Inf(-1)
	low := math.Inf(1)
	var volume int64
	ladder := make(model.PriceLadder)

	var st sideState
	for _, t := range agg.ticks {
		high = math.Max(high, t.Price)
		low = math.Min(low, t.Price)
		volume += t.Volume

		buyer := agg.cls.classify(t, &st)
		accumulate(ladder, t.Price, t.Volume, buyer)
	}

	barDelta, bidTotal, askTotal, poc, poi := ladderMetrics(ladder)

	return &model.Bar{
		Symbol:         agg.symbol,
		Interval:       agg.interval.Label,
		Start:          agg.barStart,
		Open:           first.Price,
		High:           high,
		Low:            low,
		Close:          last.Price,
		Volume:         volume,
		Ladder:         ladder,
		BarDelta:       barDelta,
		POCPrice:       poc,
		POIPrice:       poi,
		BidVolumeTotal: bidTotal,
		AskVolumeTotal: askTotal,
	}
}

// validateTick 校验单笔 Tick 的基本合法性
func validateTick(t model.Tick) error {
	switch {
	case t.Timestamp.IsZero():
		return &model.DataError{Reason: "missing timestamp", Tick: t}
	case math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0:
		return &model.DataError{Reason: "invalid price", Tick: t}
	case t.Volume < 0:
		return &model.DataError{Reason: "negative volume", Tick: t}
	}
	return nil
}
