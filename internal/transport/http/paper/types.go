package paperhttp

// OpenRequest 描述手动开仓参数。
type OpenRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Price      float64  `json:"price"`
	Quantity   float64  `json:"quantity"`
	Leverage   int      `json:"leverage"`
	MarginType string   `json:"margin_type"`
	TakeProfit *float64 `json:"take_profit"`
	StopLoss   *float64 `json:"stop_loss"`
}

// CloseRequest 描述手动平仓参数, quantity 与 close_ratio 二选一。
type CloseRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	CloseRatio float64 `json:"close_ratio"`
}

// TriggersRequest 整体覆盖某个仓位的止盈止损。
type TriggersRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	TakeProfit *float64 `json:"take_profit"`
	StopLoss   *float64 `json:"stop_loss"`
}

// DefaultsRequest 更新后续开仓的默认杠杆与保证金模式。
type DefaultsRequest struct {
	Leverage   int    `json:"leverage"`
	MarginType string `json:"margin_type"`
}

// TradeView 是成交记录的对外表示, 字段名与持久化格式保持一致。
type TradeView struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Action      string  `json:"action"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	Leverage    int     `json:"leverage"`
	RealizedPnL float64 `json:"realized_pnl"`
	Fee         float64 `json:"fee"`
	CloseReason string  `json:"close_reason"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// PositionView 是仓位的对外表示, 附带按最新价折算的浮动盈亏。
type PositionView struct {
	ID               string   `json:"id"`
	Symbol           string   `json:"symbol"`
	Side             string   `json:"side"`
	EntryPrice       float64  `json:"entry_price"`
	Quantity         float64  `json:"quantity"`
	Leverage         int      `json:"leverage"`
	MarginType       string   `json:"margin_type"`
	Margin           float64  `json:"margin"`
	LiquidationPrice float64  `json:"liquidation_price"`
	TakeProfit       *float64 `json:"take_profit_price"`
	StopLoss         *float64 `json:"stop_loss_price"`
	MarkPrice        *float64 `json:"mark_price,omitempty"`
	UnrealizedPnL    *float64 `json:"unrealized_pnl,omitempty"`
	OpenedAt         int64    `json:"opened_at"`
}
