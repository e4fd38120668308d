package strategy

import (
	"sync"

	"go.uber.org/zap"

	"orderflow-engine/internal/model"
	"orderflow-engine/pkg/ta"
)

// 市场状态常量
type MarketState string

const (
	// 趋势模式 (Up or Down)
	StateStrongUpTrend   MarketState = "STRONG_UP_TREND"
	StateStrongDownTrend MarketState = "STRONG_DOWN_TREND"

	// 震荡模式
	StateHighVolRanging MarketState = "HIGH_VOL_RANGING" // 高波动震荡
	StateLowVolRanging  MarketState = "LOW_VOL_RANGING"  // 低波动震荡

	// 初始状态
	StateInitial MarketState = "INITIALIZING"
)

// StateMachine 根据小时级指标快照对市场状态分类
// 与单纯的价格指标不同，这里额外要求订单流 (CVD) 与趋势方向一致，
// 避免把没有主动买盘支撑的上涨误判为强趋势
type StateMachine struct {
	mu           sync.RWMutex
	CurrentState MarketState
	taClient     *ta.TACalculator
	logger       *zap.Logger

	driveInterval   string  // 驱动状态切换的周期
	TrendThreshold  float64 // RSI 趋势强度阈值
	ATRVolThreshold float64 // 高/低波动分界的百分比 ATR 阈值
}

// NewStateMachine 初始化状态机
func NewStateMachine(taClient *ta.TACalculator, driveInterval string, logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateMachine{
		CurrentState:    StateInitial,
		taClient:        taClient,
		logger:          logger,
		driveInterval:   driveInterval,
		TrendThreshold:  60.0,   // RSI 超过 60 视为潜在强势
		ATRVolThreshold: 0.0005, // 0.05% 的百分比 ATR 阈值
	}
}

// CheckAndTransition 是状态机驱动的核心函数，只由驱动周期的 Bar 触发
func (sm *StateMachine) CheckAndTransition(bar model.Bar) {
	if bar.Interval != sm.driveInterval {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	taData, err := sm.taClient.GetTAData(sm.driveInterval)
	if err != nil {
		sm.logger.Warn("TA data not ready, skipping state transition.",
			zap.String("Interval", sm.driveInterval))
		return
	}

	var newState MarketState
	isUpTrend, isDownTrend := sm.checkStrongTrend(taData)

	switch {
	case isUpTrend:
		newState = StateStrongUpTrend
	case isDownTrend:
		newState = StateStrongDownTrend
	default:
		newState = sm.determineRangingMode(taData)
	}

	if newState != sm.CurrentState {
		sm.logger.Info("!!! State Transition !!!",
			zap.String("From", string(sm.CurrentState)),
			zap.String("To", string(newState)),
			zap.Float64("RSI", taData.RSI),
			zap.Float64("ATR", taData.ATR),
			zap.Float64("CVD", taData.CVD))
		sm.CurrentState = newState
	}
}

// checkStrongTrend 结合价格指标与订单流判断强趋势
func (sm *StateMachine) checkStrongTrend(taData *ta.TAData) (isUpTrend bool, isDownTrend bool) {
	latestClose := taData.Close[len(taData.Close)-1]

	// 条件 1: 价格相对均线的位置
	aboveMA := latestClose > taData.MA
	belowMA := latestClose < taData.MA

	// 条件 2: RSI 动量
	upMomentum := taData.RSI >= sm.TrendThreshold
	downMomentum := taData.RSI <= (100 - sm.TrendThreshold)

	// 条件 3: 订单流确认，窗口内累计 Delta 必须与方向一致
	deltaConfirmUp := taData.CVD > 0
	deltaConfirmDown := taData.CVD < 0

	isUpTrend = aboveMA && upMomentum && deltaConfirmUp
	isDownTrend = belowMA && downMomentum && deltaConfirmDown
	return isUpTrend, isDownTrend
}

// determineRangingMode 根据百分比 ATR 区分高/低波动震荡
func (sm *StateMachine) determineRangingMode(taData *ta.TAData) MarketState {
	latestPrice := taData.Close[len(taData.Close)-1]
	if latestPrice == 0 {
		return StateLowVolRanging // 异常情况，先进入保守模式
	}

	percentATR := taData.ATR / latestPrice
	if percentATR >= sm.ATRVolThreshold {
		return StateHighVolRanging
	}
	return StateLowVolRanging
}

// GetCurrentState 供外部查询当前状态
func (sm *StateMachine) GetCurrentState() MarketState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.CurrentState
}
