package statejson

import (
	"time"

	"github.com/tidwall/gjson"

	"paperperp/internal/engine"
	"paperperp/internal/risk"
)

// 逐字段验类型：类型不对整条丢弃；仅止盈/止损与 fee 属于
// 老版本允许缺失的字段，缺失时补默认值（nil / 0）。

func decodePosition(entry gjson.Result) (engine.Position, bool) {
	var pos engine.Position

	// 持久化形态是 [key, record] 二元组；key 冗余存储，record 为准
	rec := entry
	if entry.IsArray() {
		items := entry.Array()
		if len(items) != 2 {
			return pos, false
		}
		rec = items[1]
	}
	if !rec.IsObject() {
		return pos, false
	}

	id, ok := stringField(rec, "id")
	if !ok {
		return pos, false
	}
	symbol, ok := stringField(rec, "symbol")
	if !ok || symbol == "" {
		return pos, false
	}
	side := risk.Side(rec.Get("side").Str)
	if !side.Valid() {
		return pos, false
	}
	entryPrice, ok := numberField(rec, "entry_price")
	if !ok || entryPrice <= 0 {
		return pos, false
	}
	qty, ok := numberField(rec, "quantity")
	if !ok || qty <= 0 {
		return pos, false
	}
	leverage, ok := numberField(rec, "leverage")
	if !ok || leverage < 1 {
		return pos, false
	}
	marginType := risk.MarginType(rec.Get("margin_type").Str)
	if !marginType.Valid() {
		return pos, false
	}
	margin, ok := numberField(rec, "margin")
	if !ok || margin < 0 {
		return pos, false
	}
	liqPrice, ok := numberField(rec, "liquidation_price")
	if !ok {
		return pos, false
	}
	openedAt, ok := numberField(rec, "opened_at")
	if !ok {
		return pos, false
	}

	pos = engine.Position{
		ID:               id,
		Symbol:           symbol,
		Side:             side,
		EntryPrice:       entryPrice,
		Quantity:         qty,
		Leverage:         int(leverage),
		MarginType:       marginType,
		Margin:           margin,
		LiquidationPrice: liqPrice,
		TakeProfit:       optionalPrice(rec.Get("take_profit_price")),
		StopLoss:         optionalPrice(rec.Get("stop_loss_price")),
		OpenedAt:         time.UnixMilli(int64(openedAt)).UTC(),
	}
	return pos, true
}

func decodeTrade(entry gjson.Result) (engine.Trade, bool) {
	var trade engine.Trade
	if !entry.IsObject() {
		return trade, false
	}

	id, ok := stringField(entry, "id")
	if !ok {
		return trade, false
	}
	symbol, ok := stringField(entry, "symbol")
	if !ok || symbol == "" {
		return trade, false
	}
	side := risk.Side(entry.Get("side").Str)
	if !side.Valid() {
		return trade, false
	}
	action := engine.Action(entry.Get("action").Str)
	if action != engine.ActionOpen && action != engine.ActionClose {
		return trade, false
	}
	price, ok := numberField(entry, "price")
	if !ok || price <= 0 {
		return trade, false
	}
	qty, ok := numberField(entry, "quantity")
	if !ok || qty <= 0 {
		return trade, false
	}
	leverage, ok := numberField(entry, "leverage")
	if !ok || leverage < 1 {
		return trade, false
	}
	pnl, ok := numberField(entry, "realized_pnl")
	if !ok {
		return trade, false
	}
	ts, ok := numberField(entry, "timestamp")
	if !ok {
		return trade, false
	}

	// fee 是后来才加入 schema 的字段，缺失按 0 处理
	fee := 0.0
	if f := entry.Get("fee"); f.Exists() {
		if f.Type != gjson.Number {
			return trade, false
		}
		fee = f.Num
	}

	reason := ""
	if r := entry.Get("close_reason"); r.Exists() && r.Type != gjson.Null {
		if r.Type != gjson.String {
			return trade, false
		}
		reason = r.Str
	}

	trade = engine.Trade{
		ID:          id,
		Symbol:      symbol,
		Side:        side,
		Action:      action,
		Price:       price,
		Quantity:    qty,
		Leverage:    int(leverage),
		RealizedPnL: pnl,
		Fee:         fee,
		CloseReason: engine.CloseReason(reason),
		Timestamp:   time.UnixMilli(int64(ts)).UTC(),
	}
	return trade, true
}

func stringField(rec gjson.Result, key string) (string, bool) {
	v := rec.Get(key)
	if v.Type != gjson.String {
		return "", false
	}
	return v.Str, true
}

func numberField(rec gjson.Result, key string) (float64, bool) {
	v := rec.Get(key)
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Num, true
}

// optionalPrice 将缺失/null/非正数统一还原为 nil。
func optionalPrice(v gjson.Result) *float64 {
	if !v.Exists() || v.Type != gjson.Number || v.Num <= 0 {
		return nil
	}
	price := v.Num
	return &price
}
