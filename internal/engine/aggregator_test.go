package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow-engine/internal/model"
)

var barBase = time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, cfg AggregatorConfig) *BarAggregator {
	t.Helper()
	if cfg.Symbol == "" {
		cfg.Symbol = "XAUUSD"
	}
	if cfg.Interval == "" {
		cfg.Interval = "5min"
	}
	agg, err := NewBarAggregator(cfg, nil)
	require.NoError(t, err)
	return agg
}

func tickAt(offset time.Duration, price float64, volume int64) model.Tick {
	return model.Tick{Timestamp: barBase.Add(offset), Price: price, Volume: volume}
}

func TestNewBarAggregatorConfigErrors(t *testing.T) {
	_, err := NewBarAggregator(AggregatorConfig{Interval: "5x"}, nil)
	require.Error(t, err)
	var cfgErr *model.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewBarAggregator(AggregatorConfig{Interval: "5min", TickSideLogic: "bogus"}, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSingleTickFlush(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})

	bar, err := agg.AddTick(tickAt(7*time.Second, 2301.5, 12))
	require.NoError(t, err)
	assert.Nil(t, bar)

	bar = agg.Flush()
	require.NotNil(t, bar)
	assert.Equal(t, barBase, bar.Start)
	assert.Equal(t, 2301.5, bar.Open)
	assert.Equal(t, 2301.5, bar.High)
	assert.Equal(t, 2301.5, bar.Low)
	assert.Equal(t, 2301.5, bar.Close)
	assert.Equal(t, int64(12), bar.Volume)
	assert.Equal(t, "XAUUSD", bar.Symbol)
	assert.Equal(t, "5min", bar.Interval)
}

func TestEmptyFlush(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})
	assert.Nil(t, agg.Flush())

	// Flush 后回到空闲态，再次 Flush 依然返回 nil
	assert.Nil(t, agg.Flush())
}

func TestLeeReadyScenario(t *testing.T) {
	// 价格序列 [100,101,100,99]，每笔 10 手:
	// 第一笔默认买方，升价买方，两次降价都是卖方 -> ask=20, bid=20, delta=0
	agg := newTestAggregator(t, AggregatorConfig{TickSideLogic: "lee_ready_simple"})

	for i, price := range []float64{100, 101, 100, 99} {
		bar, err := agg.AddTick(tickAt(time.Duration(i)*time.Second, price, 10))
		require.NoError(t, err)
		assert.Nil(t, bar)
	}

	bar := agg.Flush()
	require.NotNil(t, bar)
	assert.Equal(t, int64(20), bar.AskVolumeTotal)
	assert.Equal(t, int64(20), bar.BidVolumeTotal)
	assert.Equal(t, int64(0), bar.BarDelta)
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 101.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 99.0, bar.Close)
	assert.Equal(t, int64(40), bar.Volume)
}

func assertBarInvariants(t *testing.T, bar *model.Bar) {
	t.Helper()

	// OHLC 边界
	assert.LessOrEqual(t, bar.Low, bar.Open)
	assert.LessOrEqual(t, bar.Low, bar.Close)
	assert.GreaterOrEqual(t, bar.High, bar.Open)
	assert.GreaterOrEqual(t, bar.High, bar.Close)

	// 体量守恒: 阶梯逐级加总等于 Bar 总量
	var ladderTotal int64
	for _, ls := range bar.Ladder {
		assert.Equal(t, ls.TotalVolume, ls.BidVolume+ls.AskVolume)
		assert.Equal(t, ls.Delta, ls.AskVolume-ls.BidVolume)
		ladderTotal += ls.TotalVolume
	}
	assert.Equal(t, bar.Volume, ladderTotal)

	// Delta 恒等式
	assert.Equal(t, bar.Volume, bar.BidVolumeTotal+bar.AskVolumeTotal)
	assert.Equal(t, bar.BarDelta, bar.AskVolumeTotal-bar.BidVolumeTotal)
}

func TestInvariantsHoldForAllPolicies(t *testing.T) {
	ticks := []model.Tick{
		{Timestamp: barBase.Add(1 * time.Second), Price: 100.0, Volume: 10, Bid: 99.9, Ask: 100.1, Flags: "buy"},
		{Timestamp: barBase.Add(2 * time.Second), Price: 100.1, Volume: 5, Bid: 100.0, Ask: 100.1, Flags: "sell"},
		{Timestamp: barBase.Add(3 * time.Second), Price: 100.0, Volume: 7, Bid: 100.0, Ask: 100.2},
		{Timestamp: barBase.Add(4 * time.Second), Price: 99.8, Volume: 3, Flags: "sell"},
		{Timestamp: barBase.Add(5 * time.Second), Price: 100.05, Volume: 9, Bid: 100.0, Ask: 100.1, Flags: "buy"},
		{Timestamp: barBase.Add(6 * time.Second), Price: 100.05, Volume: 4},
	}

	for _, policy := range []string{"lee_ready_simple", "use_l1_quote", "use_flags"} {
		t.Run(policy, func(t *testing.T) {
			agg := newTestAggregator(t, AggregatorConfig{
				TickSideLogic:  policy,
				FlagsBuyValue:  "buy",
				FlagsSellValue: "sell",
			})
			for _, tick := range ticks {
				bar, err := agg.AddTick(tick)
				require.NoError(t, err)
				assert.Nil(t, bar)
			}
			bar := agg.Flush()
			require.NotNil(t, bar)
			assertBarInvariants(t, bar)
		})
	}
}

func TestPoliciesDivergeOnIdenticalTicks(t *testing.T) {
	// flag 与价格走向反着来: use_flags 和 lee_ready 在同一份数据上
	// 必然给出不同的 delta，这是策略语义差异而非 bug
	ticks := []model.Tick{
		{Timestamp: barBase.Add(1 * time.Second), Price: 100.0, Volume: 10, Flags: "sell"},
		{Timestamp: barBase.Add(2 * time.Second), Price: 101.0, Volume: 10, Flags: "sell"},
		{Timestamp: barBase.Add(3 * time.Second), Price: 102.0, Volume: 10, Flags: "sell"},
	}

	deltas := make(map[string]int64)
	for _, policy := range []string{"lee_ready_simple", "use_flags"} {
		agg := newTestAggregator(t, AggregatorConfig{
			TickSideLogic:  policy,
			FlagsBuyValue:  "buy",
			FlagsSellValue: "sell",
		})
		for _, tick := range ticks {
			_, err := agg.AddTick(tick)
			require.NoError(t, err)
		}
		bar := agg.Flush()
		require.NotNil(t, bar)
		assertBarInvariants(t, bar)
		deltas[policy] = bar.BarDelta
	}

	assert.Equal(t, int64(30), deltas["lee_ready_simple"])
	assert.Equal(t, int64(-30), deltas["use_flags"])
}

func TestBarRollover(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})

	bar, err := agg.AddTick(tickAt(10*time.Second, 100, 5))
	require.NoError(t, err)
	assert.Nil(t, bar)

	bar, err = agg.AddTick(tickAt(4*time.Minute, 101, 5))
	require.NoError(t, err)
	assert.Nil(t, bar)

	// 跨过窗口的 Tick 触发翻转: 返回上一根，触发笔计入新 Bar
	bar, err = agg.AddTick(tickAt(5*time.Minute+1*time.Second, 102, 7))
	require.NoError(t, err)
	require.NotNil(t, bar)
	assert.Equal(t, barBase, bar.Start)
	assert.Equal(t, int64(10), bar.Volume)
	assert.Equal(t, 101.0, bar.Close)

	next := agg.Flush()
	require.NotNil(t, next)
	assert.Equal(t, barBase.Add(5*time.Minute), next.Start)
	assert.Equal(t, int64(7), next.Volume)
	assert.Equal(t, 102.0, next.Open)
}

func TestGapSkipsEmptyIntervals(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})

	_, err := agg.AddTick(tickAt(30*time.Second, 100, 5))
	require.NoError(t, err)

	// 下一笔落在 12:23，中间 12:05/12:10/12:15 三个空档周期不产生零量 Bar
	bar, err := agg.AddTick(tickAt(23*time.Minute, 101, 5))
	require.NoError(t, err)
	require.NotNil(t, bar)
	assert.Equal(t, barBase, bar.Start)

	// 新 Bar 锚定到触发 Tick 自己的对齐边界 12:20，而不是 12:05
	next := agg.Flush()
	require.NotNil(t, next)
	assert.Equal(t, barBase.Add(20*time.Minute), next.Start)
}

func TestOutOfOrderTickDropped(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})

	_, err := agg.AddTick(tickAt(5*time.Minute+30*time.Second, 100, 5))
	require.NoError(t, err)

	// 迟到的 Tick (早于当前 Bar 起点 12:05) 被丢弃
	bar, err := agg.AddTick(tickAt(4*time.Minute, 99, 3))
	require.NoError(t, err)
	assert.Nil(t, bar)

	final := agg.Flush()
	require.NotNil(t, final)
	assert.Equal(t, int64(5), final.Volume)
}

func TestMalformedTickSkippedByDefault(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{})

	for _, bad := range []model.Tick{
		{Price: 100, Volume: 1},                              // 缺时间戳
		{Timestamp: barBase, Price: -1, Volume: 1},           // 非法价格
		{Timestamp: barBase, Price: 100, Volume: -5},         // 负成交量
	} {
		bar, err := agg.AddTick(bad)
		require.NoError(t, err)
		assert.Nil(t, bar)
	}

	// 脏数据没有进入缓冲
	assert.Nil(t, agg.Flush())
}

func TestStrictModeSurfacesDataError(t *testing.T) {
	agg := newTestAggregator(t, AggregatorConfig{Strict: true})

	_, err := agg.AddTick(model.Tick{Timestamp: barBase, Price: 100, Volume: -5})
	require.Error(t, err)
	var dataErr *model.DataError
	assert.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "negative volume", dataErr.Reason)
}

func TestZeroVolumeTickIsAccepted(t *testing.T) {
	// 价格快照 (volume=0) 是合法输入，影响 OHLC 但不影响量
	agg := newTestAggregator(t, AggregatorConfig{})

	_, err := agg.AddTick(tickAt(1*time.Second, 100, 10))
	require.NoError(t, err)
	_, err = agg.AddTick(tickAt(2*time.Second, 105, 0))
	require.NoError(t, err)

	bar := agg.Flush()
	require.NotNil(t, bar)
	assert.Equal(t, 105.0, bar.High)
	assert.Equal(t, int64(10), bar.Volume)
	assertBarInvariants(t, bar)
}
