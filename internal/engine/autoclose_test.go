package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperperp/internal/risk"
)

func TestAutoCloseLiquidation(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 10000})
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, nil, nil))
	openFee := 50000 * 0.1 * risk.FuturesFeeRate

	events := e.CheckAutoClose(map[string]float64{"BTCUSDT": 44000})
	require.Len(t, events, 1)
	assert.Equal(t, CloseLiquidated, events[0].Reason)
	assert.Equal(t, "BTCUSDT", events[0].Symbol)

	_, found := e.Position("BTCUSDT", risk.SideLong)
	assert.False(t, found)

	// 强平没收全部保证金, 不走盈亏公式也不收手续费
	assert.InDelta(t, 10000-openFee-500, e.Balance(), 1e-9)
	trades := e.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, CloseLiquidated, trades[0].CloseReason)
	assert.InDelta(t, -500.0, trades[0].RealizedPnL, 1e-9)
	assert.Equal(t, 0.0, trades[0].Fee)
}

func TestAutoCloseLiquidationBeatsTakeProfit(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 100000})
	// 空头: 强平价 55000, 止盈挂在更高的 56000; 价格 56000 同时满足两者
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideShort, 50000, 0.1, 10, risk.MarginIsolated, f(56000), nil))

	events := e.CheckAutoClose(map[string]float64{"BTCUSDT": 56000})
	require.Len(t, events, 1)
	assert.Equal(t, CloseLiquidated, events[0].Reason)
}

func TestAutoCloseTakeProfitAndStopLoss(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 100000})
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, f(55000), nil))
	require.True(t, e.OpenPosition("ETHUSDT", risk.SideLong, 3000, 1, 10, risk.MarginIsolated, nil, f(2900)))

	events := e.CheckAutoClose(map[string]float64{
		"BTCUSDT": 55000, // 边界价恰好命中止盈
		"ETHUSDT": 2850,
	})
	require.Len(t, events, 2)
	assert.Equal(t, CloseTakeProfit, events[0].Reason)
	assert.Equal(t, "BTCUSDT", events[0].Symbol)
	assert.Equal(t, CloseStopLoss, events[1].Reason)
	assert.Equal(t, "ETHUSDT", events[1].Symbol)
	assert.Empty(t, e.Positions())
}

func TestAutoCloseCrossExemptFromLiquidation(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 100000})
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginCross, nil, nil))

	// 价格远低于逐仓理论强平价, 全仓仍不强平
	events := e.CheckAutoClose(map[string]float64{"BTCUSDT": 30000})
	assert.Empty(t, events)
	_, found := e.Position("BTCUSDT", risk.SideLong)
	assert.True(t, found)
}

func TestAutoCloseSkipsMissingPrices(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 100000})
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, nil, nil))

	assert.Empty(t, e.CheckAutoClose(nil))
	assert.Empty(t, e.CheckAutoClose(map[string]float64{"ETHUSDT": 1}))
	assert.Empty(t, e.CheckAutoClose(map[string]float64{"BTCUSDT": -5}))
}

func TestAutoCloseIdempotent(t *testing.T) {
	e := newTestEngine(Config{InitialBalance: 10000})
	require.True(t, e.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, nil, nil))

	prices := map[string]float64{"BTCUSDT": 40000}
	require.Len(t, e.CheckAutoClose(prices), 1)
	balance := e.Balance()

	// 已平仓位不在账本里, 重复扫描不再产生事件
	assert.Empty(t, e.CheckAutoClose(prices))
	assert.Equal(t, balance, e.Balance())
}
