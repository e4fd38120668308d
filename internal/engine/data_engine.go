package engine

import (
	"go.uber.org/zap"

	"orderflow-engine/internal/model"
)

// TickEvent 是行情源推出的带符号标注的 Tick
// 核心聚合器只认 model.Tick，符号路由在这一层完成
type TickEvent struct {
	Symbol string
	Tick   model.Tick
}

// DataEngine 负责接收 Tick，驱动多周期聚合，并把完成的 Bar 发给下游
// 一个 DataEngine 实例只服务一个 Symbol；所有聚合器由同一个循环顺序驱动，
// 保证每个聚合器看到的 Tick 序列与到达顺序一致
type DataEngine struct {
	tickChan    <-chan TickEvent
	barChan     chan model.Bar
	aggregators []*BarAggregator
	symbol      string
	logger      *zap.Logger
}

// NewDataEngine 为一个 Symbol 创建并初始化所有周期的聚合器
// 任一周期或策略配置非法时立即返回错误，不会启动半残的引擎
func NewDataEngine(
	tickChan <-chan TickEvent,
	symbol string,
	intervals []string,
	cfg AggregatorConfig, // Interval 字段被 intervals 逐个覆盖
	logger *zap.Logger,
) (*DataEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	de := &DataEngine{
		tickChan: tickChan,
		barChan:  make(chan model.Bar, 100),
		symbol:   symbol,
		logger:   logger,
	}

	for _, interval := range intervals {
		aggCfg := cfg
		aggCfg.Symbol = symbol
		aggCfg.Interval = interval
		agg, err := NewBarAggregator(aggCfg, logger)
		if err != nil {
			return nil, err
		}
		de.aggregators = append(de.aggregators, agg)
	}

	return de, nil
}

// Start 启动数据处理循环，直到 Tick 通道被关闭
// 核心过滤逻辑: 只处理与本实例 Symbol 匹配的数据
func (de *DataEngine) Start() {
	de.logger.Info("Data Engine started, monitoring tick stream...",
		zap.String("Symbol", de.symbol))

	for ev := range de.tickChan {
		if ev.Symbol != de.symbol {
			continue
		}

		for _, agg := range de.aggregators {
			bar, err := agg.AddTick(ev.Tick)
			if err != nil {
				// Strict 模式下把坏数据暴露出来，但不让单笔 Tick 打断整条流
				de.logger.Error("Tick rejected by aggregator",
					zap.String("Symbol", de.symbol),
					zap.String("Interval", agg.Interval().Label),
					zap.Error(err))
				continue
			}
			if bar != nil {
				de.emit(*bar)
			}
		}
	}

	// Tick 通道关闭即流结束，把所有进行中的 Bar 收尾发出
	for _, agg := range de.aggregators {
		if bar := agg.Flush(); bar != nil {
			de.emit(*bar)
		}
	}
	close(de.barChan)

	de.logger.Info("Data Engine stopped", zap.String("Symbol", de.symbol))
}

// GetBarChannel 供下游 (指标层/落盘层) 获取完成的 Bar 流
func (de *DataEngine) GetBarChannel() <-chan model.Bar {
	return de.barChan
}

func (de *DataEngine) emit(bar model.Bar) {
	select {
	case de.barChan <- bar:
		// 成功发送
	default:
		de.logger.Warn("Bar output channel full! Dropping completed bar.",
			zap.String("Symbol", bar.Symbol), zap.String("Interval", bar.Interval))
	}
}
