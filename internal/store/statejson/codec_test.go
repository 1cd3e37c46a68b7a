package statejson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperperp/internal/engine"
	"paperperp/internal/risk"
)

func tp(v float64) *float64 { return &v }

func sampleState() engine.State {
	opened := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return engine.State{
		WalletBalance: 9876.5,
		Positions: []engine.Position{
			{
				ID: "p1", Symbol: "BTCUSDT", Side: risk.SideLong,
				EntryPrice: 50000, Quantity: 0.1, Leverage: 10,
				MarginType: risk.MarginIsolated, Margin: 500,
				LiquidationPrice: 45000, TakeProfit: tp(60000),
				OpenedAt: opened,
			},
			{
				ID: "p2", Symbol: "ETHUSDT", Side: risk.SideShort,
				EntryPrice: 3000, Quantity: 2, Leverage: 5,
				MarginType: risk.MarginCross, Margin: 1200,
				LiquidationPrice: 0, OpenedAt: opened,
			},
		},
		Trades: []engine.Trade{
			{
				ID: "t1", Symbol: "BTCUSDT", Side: risk.SideLong, Action: engine.ActionClose,
				Price: 55000, Quantity: 0.1, Leverage: 10, RealizedPnL: 497.8, Fee: 2.2,
				CloseReason: engine.CloseTakeProfit, Timestamp: opened,
			},
			{
				ID: "t2", Symbol: "BTCUSDT", Side: risk.SideLong, Action: engine.ActionOpen,
				Price: 50000, Quantity: 0.1, Leverage: 10, Fee: 2.0, Timestamp: opened,
			},
		},
		DefaultLeverage:   10,
		DefaultMarginType: risk.MarginCross,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := Encode(sampleState())
	require.NoError(t, err)

	st, ok := Decode(data, 200)
	require.True(t, ok)
	assert.Equal(t, sampleState(), st)
}

func TestDecodeRejectsUnusablePayloads(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not json":       "{broken",
		"wrong type":     `[1,2,3]`,
		"missing fields": `{"wallet_balance": 1}`,
		"string wallet":  `{"wallet_balance": "much", "positions": [], "trades": []}`,
	}
	for name, payload := range cases {
		_, ok := Decode([]byte(payload), 200)
		assert.False(t, ok, name)
	}
}

func TestDecodeDropsMalformedEntries(t *testing.T) {
	payload := `{
		"wallet_balance": 100,
		"positions": [
			["BTCUSDT:long", {"id": "p1", "symbol": "BTCUSDT", "side": "long",
				"entry_price": 50000, "quantity": 0.1, "leverage": 10,
				"margin_type": "isolated", "margin": 500,
				"liquidation_price": 45000, "opened_at": 1700000000000}],
			["ETHUSDT:long", {"id": "p2", "symbol": "ETHUSDT", "side": "long",
				"entry_price": "3000", "quantity": 1, "leverage": 5,
				"margin_type": "isolated", "margin": 600,
				"liquidation_price": 2400, "opened_at": 1700000000000}],
			["SOLUSDT:long", {"id": "p3", "symbol": "SOLUSDT", "side": "sideways",
				"entry_price": 100, "quantity": 1, "leverage": 5,
				"margin_type": "isolated", "margin": 20,
				"liquidation_price": 80, "opened_at": 1700000000000}],
			"not-a-pair"
		],
		"trades": [
			{"id": "t1", "symbol": "BTCUSDT", "side": "long", "action": "open",
				"price": 50000, "quantity": 0.1, "leverage": 10,
				"realized_pnl": 0, "timestamp": 1700000000000},
			{"id": "t2", "symbol": "BTCUSDT", "side": "long", "action": "hold",
				"price": 50000, "quantity": 0.1, "leverage": 10,
				"realized_pnl": 0, "timestamp": 1700000000000},
			{"id": "t3", "symbol": "BTCUSDT", "side": "long", "action": "close",
				"price": 0, "quantity": 0.1, "leverage": 10,
				"realized_pnl": 0, "timestamp": 1700000000000}
		]
	}`
	st, ok := Decode([]byte(payload), 200)
	require.True(t, ok)
	// 类型不对的条目整条丢弃, 合法条目保留
	require.Len(t, st.Positions, 1)
	assert.Equal(t, "p1", st.Positions[0].ID)
	require.Len(t, st.Trades, 1)
	assert.Equal(t, "t1", st.Trades[0].ID)
}

func TestDecodeLenientFields(t *testing.T) {
	// 老版本快照: 无止盈止损字段、无 fee、close_reason 为 null
	payload := `{
		"wallet_balance": 100,
		"positions": [
			["BTCUSDT:long", {"id": "p1", "symbol": "BTCUSDT", "side": "long",
				"entry_price": 50000, "quantity": 0.1, "leverage": 10,
				"margin_type": "isolated", "margin": 500,
				"liquidation_price": 45000, "opened_at": 1700000000000}]
		],
		"trades": [
			{"id": "t1", "symbol": "BTCUSDT", "side": "long", "action": "close",
				"price": 55000, "quantity": 0.1, "leverage": 10,
				"realized_pnl": 500, "close_reason": null, "timestamp": 1700000000000}
		]
	}`
	st, ok := Decode([]byte(payload), 200)
	require.True(t, ok)
	require.Len(t, st.Positions, 1)
	assert.Nil(t, st.Positions[0].TakeProfit)
	assert.Nil(t, st.Positions[0].StopLoss)
	require.Len(t, st.Trades, 1)
	assert.Equal(t, 0.0, st.Trades[0].Fee)
	assert.Empty(t, string(st.Trades[0].CloseReason))
}

func TestDecodeLenientFieldWrongTypeDrops(t *testing.T) {
	payload := `{
		"wallet_balance": 100,
		"positions": [],
		"trades": [
			{"id": "t1", "symbol": "BTCUSDT", "side": "long", "action": "close",
				"price": 55000, "quantity": 0.1, "leverage": 10,
				"realized_pnl": 500, "fee": "expensive", "timestamp": 1700000000000}
		]
	}`
	st, ok := Decode([]byte(payload), 200)
	require.True(t, ok)
	assert.Empty(t, st.Trades)
}

func TestDecodeCapsTradeHistory(t *testing.T) {
	st := sampleState()
	data, err := Encode(st)
	require.NoError(t, err)

	decoded, ok := Decode(data, 1)
	require.True(t, ok)
	require.Len(t, decoded.Trades, 1)
	assert.Equal(t, "t1", decoded.Trades[0].ID)
}

func TestDecodeBarePositionObject(t *testing.T) {
	// 兼容未包成 [key, record] 二元组的裸对象
	payload := `{
		"wallet_balance": 100,
		"positions": [
			{"id": "p1", "symbol": "BTCUSDT", "side": "long",
				"entry_price": 50000, "quantity": 0.1, "leverage": 10,
				"margin_type": "cross", "margin": 500,
				"liquidation_price": 0, "opened_at": 1700000000000}
		],
		"trades": []
	}`
	st, ok := Decode([]byte(payload), 200)
	require.True(t, ok)
	require.Len(t, st.Positions, 1)
	assert.Equal(t, risk.MarginCross, st.Positions[0].MarginType)
}
