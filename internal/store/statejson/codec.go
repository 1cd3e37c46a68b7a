// Package statejson 负责引擎状态的 JSON 编解码。
// 解码是防御性的：顶层形状用 JSON Schema 校验，列表项逐字段验类型，
// 坏条目静默丢弃而不是整体失败，老版本缺失的字段补默认值。
package statejson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"paperperp/internal/engine"
	"paperperp/internal/logger"
	"paperperp/internal/risk"
)

// 顶层形状约束。字段级的宽容校验在 gjson 遍历里做，这里只拦截
// 根本不是状态文档的载荷（解析失败、类型全错）。
const stateSchema = `{
	"type": "object",
	"required": ["wallet_balance", "positions", "trades"],
	"properties": {
		"wallet_balance": {"type": "number"},
		"positions": {"type": "array"},
		"trades": {"type": "array"},
		"default_leverage": {"type": "number"},
		"default_margin_type": {"type": "string"}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("state.json", strings.NewReader(stateSchema)); err != nil {
		panic(fmt.Sprintf("statejson: add schema resource: %v", err))
	}
	return compiler.MustCompile("state.json")
}

type positionRecord struct {
	ID               string   `json:"id"`
	Symbol           string   `json:"symbol"`
	Side             string   `json:"side"`
	EntryPrice       float64  `json:"entry_price"`
	Quantity         float64  `json:"quantity"`
	Leverage         int      `json:"leverage"`
	MarginType       string   `json:"margin_type"`
	Margin           float64  `json:"margin"`
	LiquidationPrice float64  `json:"liquidation_price"`
	TakeProfitPrice  *float64 `json:"take_profit_price"`
	StopLossPrice    *float64 `json:"stop_loss_price"`
	OpenedAt         int64    `json:"opened_at"`
}

type tradeRecord struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Action      string  `json:"action"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	Leverage    int     `json:"leverage"`
	RealizedPnL float64 `json:"realized_pnl"`
	Fee         float64 `json:"fee"`
	CloseReason *string `json:"close_reason"`
	Timestamp   int64   `json:"timestamp"`
}

// positionPair 序列化为 [key, record] 二元组，保持账本插入顺序。
type positionPair struct {
	Key    string
	Record positionRecord
}

func (p positionPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Record})
}

type document struct {
	WalletBalance     float64        `json:"wallet_balance"`
	Positions         []positionPair `json:"positions"`
	Trades            []tradeRecord  `json:"trades"`
	DefaultLeverage   int            `json:"default_leverage"`
	DefaultMarginType string         `json:"default_margin_type"`
}

// Encode 把引擎状态序列化为持久化 JSON。
func Encode(st engine.State) ([]byte, error) {
	doc := document{
		WalletBalance:     st.WalletBalance,
		Positions:         make([]positionPair, 0, len(st.Positions)),
		Trades:            make([]tradeRecord, 0, len(st.Trades)),
		DefaultLeverage:   st.DefaultLeverage,
		DefaultMarginType: string(st.DefaultMarginType),
	}
	for _, p := range st.Positions {
		key := engine.Key{Symbol: p.Symbol, Side: p.Side}
		doc.Positions = append(doc.Positions, positionPair{
			Key: key.String(),
			Record: positionRecord{
				ID:               p.ID,
				Symbol:           p.Symbol,
				Side:             string(p.Side),
				EntryPrice:       p.EntryPrice,
				Quantity:         p.Quantity,
				Leverage:         p.Leverage,
				MarginType:       string(p.MarginType),
				Margin:           p.Margin,
				LiquidationPrice: p.LiquidationPrice,
				TakeProfitPrice:  p.TakeProfit,
				StopLossPrice:    p.StopLoss,
				OpenedAt:         p.OpenedAt.UnixMilli(),
			},
		})
	}
	for _, t := range st.Trades {
		doc.Trades = append(doc.Trades, encodeTrade(t))
	}
	return json.Marshal(doc)
}

// EncodeTrade 序列化单条成交，供归档落库。
func EncodeTrade(t engine.Trade) ([]byte, error) {
	return json.Marshal(encodeTrade(t))
}

func encodeTrade(t engine.Trade) tradeRecord {
	rec := tradeRecord{
		ID:          t.ID,
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Action:      string(t.Action),
		Price:       t.Price,
		Quantity:    t.Quantity,
		Leverage:    t.Leverage,
		RealizedPnL: t.RealizedPnL,
		Fee:         t.Fee,
		Timestamp:   t.Timestamp.UnixMilli(),
	}
	if t.CloseReason != "" {
		reason := string(t.CloseReason)
		rec.CloseReason = &reason
	}
	return rec
}

// Decode 解析持久化载荷。第二个返回值为 false 表示载荷不可用
// （不是合法 JSON 或顶层形状不对），调用方应回退默认状态。
func Decode(data []byte, maxHistory int) (engine.State, bool) {
	var st engine.State
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return st, false
	}
	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return st, false
	}
	if err := compiledSchema.Validate(shape); err != nil {
		logger.Warnf("statejson: payload shape rejected: %v", err)
		return st, false
	}

	root := gjson.ParseBytes(data)
	st.WalletBalance = root.Get("wallet_balance").Num
	st.DefaultLeverage = int(root.Get("default_leverage").Num)
	if mt := risk.MarginType(root.Get("default_margin_type").Str); mt.Valid() {
		st.DefaultMarginType = mt
	}

	dropped := 0
	root.Get("positions").ForEach(func(_, entry gjson.Result) bool {
		pos, ok := decodePosition(entry)
		if !ok {
			dropped++
			return true
		}
		st.Positions = append(st.Positions, pos)
		return true
	})
	root.Get("trades").ForEach(func(_, entry gjson.Result) bool {
		if maxHistory > 0 && len(st.Trades) >= maxHistory {
			return false
		}
		trade, ok := decodeTrade(entry)
		if !ok {
			dropped++
			return true
		}
		st.Trades = append(st.Trades, trade)
		return true
	})
	if dropped > 0 {
		logger.Warnf("statejson: dropped %d malformed entries on load", dropped)
	}
	return st, true
}
