// Package risk 提供杠杆仓位的保证金、强平价与盈亏计算。
// 所有函数均为纯函数，不持有状态，由执行控制器与自动平仓扫描调用。
package risk

// 单边吃单费率，按资产类别区分。
const (
	FuturesFeeRate = 0.0004 // 4bps
	SpotFeeRate    = 0.001  // 10bps
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Opposite 返回反向方向。
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

type MarginType string

const (
	MarginIsolated MarginType = "isolated"
	MarginCross    MarginType = "cross"
)

func (m MarginType) Valid() bool {
	return m == MarginIsolated || m == MarginCross
}

// Margin 返回名义价值对应的保证金：price*qty/leverage。
func Margin(price, qty float64, leverage int) float64 {
	if leverage < 1 {
		return 0
	}
	return price * qty / float64(leverage)
}

// LiquidationPrice 计算逐仓强平价；全仓返回 0 作为"不单独强平"哨兵值。
//
//	isolated long  : entry * (1 - 1/leverage)
//	isolated short : entry * (1 + 1/leverage)
func LiquidationPrice(entryPrice float64, leverage int, side Side, marginType MarginType) float64 {
	if marginType == MarginCross {
		return 0
	}
	if leverage < 1 {
		return 0
	}
	step := entryPrice / float64(leverage)
	if side == SideLong {
		return entryPrice - step
	}
	return entryPrice + step
}

// UnrealizedPnL 按方向返回未实现盈亏。
func UnrealizedPnL(entryPrice, currentPrice, qty float64, side Side) float64 {
	if side == SideLong {
		return (currentPrice - entryPrice) * qty
	}
	return (entryPrice - currentPrice) * qty
}

// Fee 返回名义价值乘以费率的手续费。
func Fee(price, qty, feeRate float64) float64 {
	return price * qty * feeRate
}

// AverageEntry 返回同向加仓后的数量加权均价。
// 保证金与强平价需由调用方用新均价和总数量重新计算，而非简单相加。
func AverageEntry(oldEntry, oldQty, fillPrice, fillQty float64) float64 {
	total := oldQty + fillQty
	if total <= 0 {
		return 0
	}
	return (oldEntry*oldQty + fillPrice*fillQty) / total
}
