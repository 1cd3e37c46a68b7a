// Package engine 实现永续合约风格的模拟持仓引擎：
// 仓位账本、开平仓执行、自动平仓扫描与成交历史记录。
package engine

import (
	"time"

	"paperperp/internal/risk"
)

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// CloseReason 标记平仓来源；开仓成交与未平仓时为空。
type CloseReason string

const (
	CloseManual     CloseReason = "manual"
	CloseLiquidated CloseReason = "liquidated"
	CloseTakeProfit CloseReason = "take-profit"
	CloseStopLoss   CloseReason = "stop-loss"
)

// Key 唯一标识账本中的一个仓位：同一交易对每个方向至多一个。
type Key struct {
	Symbol string
	Side   risk.Side
}

func (k Key) String() string {
	return k.Symbol + ":" + string(k.Side)
}

// Position 是账本中的一个在持仓位。
// 数量恒为正，方向由 Side 表达；数量归零即从账本移除。
type Position struct {
	ID               string
	Symbol           string
	Side             risk.Side
	EntryPrice       float64 // 全部同向成交的数量加权均价
	Quantity         float64
	Leverage         int
	MarginType       risk.MarginType
	Margin           float64 // entry*qty/leverage，加仓与部分平仓时重算
	LiquidationPrice float64 // 全仓为 0 哨兵
	TakeProfit       *float64
	StopLoss         *float64
	OpenedAt         time.Time
}

// Trade 是一次执行事件的不可变记录。
type Trade struct {
	ID          string
	Symbol      string
	Side        risk.Side
	Action      Action
	Price       float64
	Quantity    float64
	Leverage    int
	RealizedPnL float64
	Fee         float64
	CloseReason CloseReason
	Timestamp   time.Time
}

// CloseEvent 是一次自动平仓的结果，供 UI 层做通知展示。
type CloseEvent struct {
	Symbol string
	Side   risk.Side
	Reason CloseReason
}

// Config 描述引擎的初始资金与边界参数。
type Config struct {
	InitialBalance    float64
	FeeRate           float64
	MaxPositions      int
	MaxHistory        int
	DefaultLeverage   int
	DefaultMarginType risk.MarginType
}

const (
	defaultInitialBalance = 10000
	defaultMaxPositions   = 20
	defaultMaxHistory     = 200
	defaultLeverage       = 10
)

func (c Config) withDefaults() Config {
	if c.InitialBalance <= 0 {
		c.InitialBalance = defaultInitialBalance
	}
	if c.FeeRate <= 0 {
		c.FeeRate = risk.FuturesFeeRate
	}
	if c.MaxPositions <= 0 {
		c.MaxPositions = defaultMaxPositions
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = defaultMaxHistory
	}
	if c.DefaultLeverage < 1 {
		c.DefaultLeverage = defaultLeverage
	}
	if !c.DefaultMarginType.Valid() {
		c.DefaultMarginType = risk.MarginCross
	}
	return c
}

// State 是引擎的完整可持久化状态快照。
type State struct {
	WalletBalance     float64
	Positions         []Position // 账本插入顺序
	Trades            []Trade    // 新在前
	DefaultLeverage   int
	DefaultMarginType risk.MarginType
}
