package engine

import (
	"paperperp/internal/logger"
	"paperperp/internal/risk"
)

// CheckAutoClose 用一份价格快照扫描账本并执行强制平仓。
// 每个仓位独立判定，优先级固定：强平 > 止盈 > 止损，命中即停。
// 快照中没有价格的交易对整体跳过，不做陈旧价假设。
// 已平仓位下次调用时已不在账本里，因此重复调用天然幂等。
func (e *Engine) CheckAutoClose(prices map[string]float64) []CloseEvent {
	if len(prices) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 账本会在扫描中收缩，先固定遍历顺序
	keys := append([]Key(nil), e.order...)

	var events []CloseEvent
	for _, key := range keys {
		pos := e.positions[key]
		if pos == nil {
			continue
		}
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}

		// 强平只对逐仓生效；全仓哨兵价 0 在比较层恒为未命中
		if pos.MarginType == risk.MarginIsolated && risk.LiquidationHit(pos.Side, price, pos.LiquidationPrice) {
			e.liquidateLocked(key, price)
			events = append(events, CloseEvent{Symbol: pos.Symbol, Side: pos.Side, Reason: CloseLiquidated})
			continue
		}
		if pos.TakeProfit != nil && risk.TakeProfitHit(pos.Side, price, *pos.TakeProfit) {
			if e.closeLocked(key, price, pos.Quantity, CloseTakeProfit) {
				events = append(events, CloseEvent{Symbol: pos.Symbol, Side: pos.Side, Reason: CloseTakeProfit})
			}
			continue
		}
		if pos.StopLoss != nil && risk.StopLossHit(pos.Side, price, *pos.StopLoss) {
			if e.closeLocked(key, price, pos.Quantity, CloseStopLoss) {
				events = append(events, CloseEvent{Symbol: pos.Symbol, Side: pos.Side, Reason: CloseStopLoss})
			}
		}
	}
	return events
}

// liquidateLocked 没收全部保证金并移除仓位。
// 与普通平仓不同：亏损额固定为保证金本身，不走盈亏公式，也不收手续费。
func (e *Engine) liquidateLocked(key Key, price float64) {
	pos := e.positions[key]
	if pos == nil {
		return
	}
	forfeited := pos.Margin
	e.balance = clampBalance(e.balance - forfeited)
	e.removePositionLocked(key)

	e.recordTradeLocked(Trade{
		ID:          e.newID(),
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Action:      ActionClose,
		Price:       price,
		Quantity:    pos.Quantity,
		Leverage:    pos.Leverage,
		RealizedPnL: -forfeited,
		CloseReason: CloseLiquidated,
		Timestamp:   e.now(),
	})
	logger.Infof("engine: %s %s liquidated at %.4f, margin %.4f forfeited", pos.Symbol, pos.Side, price, forfeited)
}
